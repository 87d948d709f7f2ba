package task

import (
	"testing"
	"time"
)

var schedNow = time.Date(2024, time.June, 12, 8, 0, 0, 0, time.UTC)

func iso(t time.Time) string { return t.Format(time.RFC3339) }

func TestNextScheduledAtSuppression(t *testing.T) {
	t.Parallel()
	future := iso(schedNow.Add(2 * time.Hour))
	tests := []struct {
		name string
		task Task
	}{
		{name: "done", task: Task{ID: "a", Status: StatusDone, DueDate: future}},
		{name: "archived", task: Task{ID: "b", Status: StatusArchived, StartTime: future}},
		{name: "soft deleted", task: Task{ID: "c", Status: StatusNext, DueDate: future, DeletedAt: iso(schedNow)}},
		{name: "no dates", task: Task{ID: "d", Status: StatusNext}},
		{name: "past dates only", task: Task{ID: "e", Status: StatusNext, DueDate: iso(schedNow.Add(-time.Hour))}},
		{name: "malformed dates", task: Task{ID: "f", Status: StatusNext, DueDate: "not-a-date", StartTime: "13/37"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := NextScheduledAt(tt.task, schedNow); ok {
				t.Fatalf("expected no occurrence for %s", tt.name)
			}
		})
	}
}

func TestNextScheduledAtEarliestWins(t *testing.T) {
	t.Parallel()
	start := schedNow.Add(3 * time.Hour)
	due := schedNow.Add(1 * time.Hour)
	got, ok := NextScheduledAt(Task{ID: "a", Status: StatusNext, StartTime: iso(start), DueDate: iso(due)}, schedNow)
	if !ok || !got.Equal(due) {
		t.Fatalf("got %v ok=%v, want %v", got, ok, due)
	}

	// A past start must not mask a future due.
	got, ok = NextScheduledAt(Task{ID: "b", Status: StatusNext, StartTime: iso(schedNow.Add(-time.Hour)), DueDate: iso(due)}, schedNow)
	if !ok || !got.Equal(due) {
		t.Fatalf("got %v ok=%v, want %v", got, ok, due)
	}
}

func TestNextScheduledAtStrictlyAfterNow(t *testing.T) {
	t.Parallel()
	if _, ok := NextScheduledAt(Task{ID: "a", Status: StatusNext, DueDate: iso(schedNow)}, schedNow); ok {
		t.Fatal("occurrence exactly at now must not schedule")
	}
}

func TestIsDueWithinMinutes(t *testing.T) {
	t.Parallel()
	tk := Task{ID: "a", Status: StatusNext, DueDate: iso(schedNow.Add(30 * time.Minute))}
	if !IsDueWithinMinutes(tk, 30, schedNow) {
		t.Fatal("30m away must be due within 30m (inclusive)")
	}
	if IsDueWithinMinutes(tk, 29, schedNow) {
		t.Fatal("30m away must not be due within 29m")
	}
	if IsDueWithinMinutes(Task{ID: "b", Status: StatusDone, DueDate: tk.DueDate}, 60, schedNow) {
		t.Fatal("done task is never due")
	}
}

func TestUpcomingSchedulesOrderAndStability(t *testing.T) {
	t.Parallel()
	at := iso(schedNow.Add(time.Hour))
	tasks := []Task{
		{ID: "late", Status: StatusNext, DueDate: iso(schedNow.Add(2 * time.Hour))},
		{ID: "tie-1", Status: StatusNext, DueDate: at},
		{ID: "skipped", Status: StatusDone, DueDate: at},
		{ID: "tie-2", Status: StatusNext, StartTime: at},
	}
	got := UpcomingSchedules(tasks, schedNow)
	ids := make([]string, len(got))
	for i, u := range got {
		ids[i] = u.Task.ID
	}
	want := []string{"tie-1", "tie-2", "late"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw          string
		hour, minute int
	}{
		{raw: "07:45", hour: 7, minute: 45},
		{raw: "23:59", hour: 23, minute: 59},
		{raw: "25:99", hour: 9, minute: 0},
		{raw: "12", hour: 9, minute: 0},
		{raw: "", hour: 9, minute: 0},
		{raw: "ab:cd", hour: 9, minute: 0},
		{raw: "-1:30", hour: 9, minute: 0},
	}
	for _, tt := range tests {
		h, m := ParseTimeOfDay(tt.raw, 9, 0)
		if h != tt.hour || m != tt.minute {
			t.Fatalf("ParseTimeOfDay(%q) = %d:%d, want %d:%d", tt.raw, h, m, tt.hour, tt.minute)
		}
	}
}
