package reminder

import (
	"sync"
	"time"

	"tickler/internal/notify"
	"tickler/internal/store"
	logx "tickler/pkg/logx"
)

// Category and action identifiers shared with the notification backends.
const (
	CategoryTaskReminder = "task-reminder"
	KindTaskReminder     = "task-reminder"
	KindDailyDigest      = "daily-digest"

	ActionSnooze = "snooze10"
	ActionOpen   = "open"
)

const defaultSnoozeMinutes = 10

type Config struct {
	// Enabled gates the whole subsystem. Disabled means Start is a no-op.
	Enabled bool
	// SnoozeMinutes is how far a snoozed reminder gets pushed. Defaults to 10.
	SnoozeMinutes int
}

func (c *Config) applyDefaults() {
	if c.SnoozeMinutes <= 0 {
		c.SnoozeMinutes = defaultSnoozeMinutes
	}
}

// Store is the slice of the task store the reminder service needs: a
// consistent read and a change feed to react to.
type Store interface {
	Snapshot() store.Snapshot
	Subscribe(buffer int) (<-chan struct{}, func())
}

// entry records one live per-task registration. The ISO instant is the
// identity used by reconciliation: same instant means the registration is
// already correct and must not be touched.
type entry struct {
	atISO  string
	handle notify.Handle
}

// Service projects the task store onto the notification port: one pending
// one-shot per schedulable task, plus the optional morning/evening digests.
// Every pass is a full reconciliation, so it is safe to run it on any store
// change without tracking what exactly changed.
type Service struct {
	cfg  Config
	log  logx.Logger
	port notify.Port
	st   Store

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time

	// passMu serializes reconciliation and snooze passes so two passes never
	// interleave their cancel/register sequences.
	passMu sync.Mutex

	mu      sync.Mutex
	started bool
	active  bool
	entries map[string]entry

	digestHandles []notify.Handle
	digestFP      uint64
	haveDigestFP  bool

	stopCh      chan struct{}
	wg          sync.WaitGroup
	unsubStore  func()
	unsubOnResp func()
}
