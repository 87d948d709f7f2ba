package task

import (
	"sort"
	"time"
)

// NextScheduledAt returns the next future trigger instant for a task.
//
// Soft-deleted and done/archived tasks never schedule. Candidates are the
// stored startTime and dueDate, each only when strictly after now; the
// earliest wins. Recurrence fields do not generate candidates here: the
// store rewrites startTime/dueDate when a recurring task completes, and this
// function is a pure projection over the stored fields.
func NextScheduledAt(t Task, now time.Time) (time.Time, bool) {
	if t.Deleted() || t.Closed() {
		return time.Time{}, false
	}

	var next time.Time
	ok := false
	for _, raw := range []string{t.StartTime, t.DueDate} {
		when, valid := ParseWhen(raw)
		if !valid || !when.After(now) {
			continue
		}
		if !ok || when.Before(next) {
			next = when
			ok = true
		}
	}
	return next, ok
}

// IsDueWithinMinutes reports whether the task's next occurrence lies in
// [now, now+minutes], inclusive of both ends.
func IsDueWithinMinutes(t Task, minutes int, now time.Time) bool {
	next, ok := NextScheduledAt(t, now)
	if !ok {
		return false
	}
	diff := next.Sub(now)
	return diff >= 0 && diff <= time.Duration(minutes)*time.Minute
}

// Upcoming pairs a task with its next trigger instant.
type Upcoming struct {
	Task Task
	At   time.Time
}

// UpcomingSchedules projects every schedulable task to its next occurrence,
// ascending by time. Ties keep input order.
func UpcomingSchedules(tasks []Task, now time.Time) []Upcoming {
	out := make([]Upcoming, 0, len(tasks))
	for _, t := range tasks {
		if at, ok := NextScheduledAt(t, now); ok {
			out = append(out, Upcoming{Task: t, At: at})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
