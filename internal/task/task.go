package task

// Status is the GTD bucket a task lives in.
type Status string

const (
	StatusInbox    Status = "inbox"
	StatusNext     Status = "next"
	StatusWaiting  Status = "waiting"
	StatusSomeday  Status = "someday"
	StatusDone     Status = "done"
	StatusArchived Status = "archived"
)

// Strategy selects how a recurring task derives its next instance.
//
//   - strict: next occurrence is computed from the originally scheduled date.
//   - fluid:  next occurrence is computed from the actual completion date.
type Strategy string

const (
	StrategyStrict Strategy = "strict"
	StrategyFluid  Strategy = "fluid"
)

// Task is the scheduling-relevant task record.
//
// Date-time fields are stored as strings (RFC 3339 or date-only) because that
// is how they round-trip through persistence and external editors; malformed
// values are treated as absent everywhere, never as errors.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`

	Contexts []string `json:"contexts,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	StartTime string `json:"startTime,omitempty"`
	DueDate   string `json:"dueDate,omitempty"`

	// Recurrence is the coarse frequency tag; RecurrenceRule optionally
	// refines it (weekday set, day-of-month, nth-weekday-of-month).
	Recurrence         Frequency `json:"recurrence,omitempty"`
	RecurrenceRule     string    `json:"recurrenceRule,omitempty"`
	RecurrenceStrategy Strategy  `json:"recurrenceStrategy,omitempty"`

	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	DeletedAt   string `json:"deletedAt,omitempty"`
}

// Deleted reports whether the task is soft-deleted.
func (t Task) Deleted() bool { return t.DeletedAt != "" }

// Closed reports whether the task is in a terminal status.
func (t Task) Closed() bool { return t.Status == StatusDone || t.Status == StatusArchived }
