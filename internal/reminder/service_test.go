package reminder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tickler/internal/notify"
	"tickler/internal/store"
	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

type dailyReg struct {
	content notify.Content
	hour    int
	minute  int
}

type fakePort struct {
	mu        sync.Mutex
	permitted bool

	seq      int
	oneShots map[notify.Handle]notify.Content
	dailies  map[notify.Handle]dailyReg

	oneShotCalls int
	dailyCalls   int
	cancelled    []notify.Handle

	categories map[string][]notify.Action
	respFn     func(notify.Response)
}

func newFakePort() *fakePort {
	return &fakePort{
		permitted:  true,
		oneShots:   map[notify.Handle]notify.Content{},
		dailies:    map[notify.Handle]dailyReg{},
		categories: map[string][]notify.Action{},
	}
}

func (p *fakePort) CheckPermission(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted, nil
}

func (p *fakePort) RequestPermission(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted, nil
}

func (p *fakePort) RegisterOneShot(_ context.Context, c notify.Content, _ time.Time) (notify.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.oneShotCalls++
	h := notify.Handle(fmt.Sprintf("oneshot-%d", p.seq))
	p.oneShots[h] = c
	return h, nil
}

func (p *fakePort) RegisterDaily(_ context.Context, c notify.Content, hour, minute int) (notify.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.dailyCalls++
	h := notify.Handle(fmt.Sprintf("daily-%d", p.seq))
	p.dailies[h] = dailyReg{content: c, hour: hour, minute: minute}
	return h, nil
}

func (p *fakePort) Cancel(_ context.Context, h notify.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, h)
	delete(p.oneShots, h)
	delete(p.dailies, h)
	return nil
}

func (p *fakePort) RegisterCategory(_ context.Context, id string, actions []notify.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.categories[id] = actions
	return nil
}

func (p *fakePort) OnResponse(fn func(notify.Response)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respFn = fn
	return func() {}
}

func (p *fakePort) live() (oneShots, dailies int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.oneShots), len(p.dailies)
}

func (p *fakePort) counts() (oneShotCalls, dailyCalls, cancels int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.oneShotCalls, p.dailyCalls, len(p.cancelled)
}

var testNow = time.Date(2024, time.June, 12, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakePort, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	port := newFakePort()
	s := New(Config{Enabled: true}, st, port, logx.Nop())
	s.now = func() time.Time { return testNow }
	// Drive reconciliation directly instead of through Start's store feed so
	// call counts stay deterministic.
	s.active = true
	return s, port, st
}

func putTask(t *testing.T, st *store.Store, tk task.Task) task.Task {
	t.Helper()
	got, err := st.Put(tk)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return got
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	putTask(t, st, task.Task{
		Title:   "Call plumber",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(testNow.Add(time.Hour)),
	})
	putTask(t, st, task.Task{Title: "No dates", Status: task.StatusInbox})

	s.reconcile(testNow)
	oneShots, _ := port.live()
	if oneShots != 1 {
		t.Fatalf("live one-shots = %d, want 1", oneShots)
	}
	regA, _, cancelA := port.counts()

	s.reconcile(testNow)
	regB, _, cancelB := port.counts()
	if regB != regA || cancelB != cancelA {
		t.Fatalf("second pass touched the port: registers %d->%d cancels %d->%d", regA, regB, cancelA, cancelB)
	}
}

func TestReconcileEarliestOfStartAndDue(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	start := testNow.Add(30 * time.Minute)
	created := putTask(t, st, task.Task{
		Title:     "Prep meeting",
		Status:    task.StatusNext,
		StartTime: task.FormatWhen(start),
		DueDate:   task.FormatWhen(testNow.Add(2 * time.Hour)),
	})

	s.reconcile(testNow)
	e, ok := s.entries[created.ID]
	if !ok {
		t.Fatal("no entry registered")
	}
	if e.atISO != task.FormatWhen(start) {
		t.Fatalf("registered at %s, want start time %s", e.atISO, task.FormatWhen(start))
	}
	if n, _ := port.live(); n != 1 {
		t.Fatalf("live one-shots = %d, want 1", n)
	}
}

func TestReconcileCancelsOnCompletion(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	created := putTask(t, st, task.Task{
		Title:   "Water plants",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(testNow.Add(time.Hour)),
	})
	s.reconcile(testNow)
	if n, _ := port.live(); n != 1 {
		t.Fatalf("live one-shots = %d, want 1", n)
	}

	if _, err := st.Complete(created.ID, testNow); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	s.reconcile(testNow)

	if n, _ := port.live(); n != 0 {
		t.Fatalf("completed task still registered: %d live", n)
	}
	if _, ok := s.entries[created.ID]; ok {
		t.Fatal("entry survived completion")
	}
}

func TestReconcileReplacesMovedDate(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	created := putTask(t, st, task.Task{
		Title:   "Review draft",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(testNow.Add(time.Hour)),
	})
	s.reconcile(testNow)

	created.DueDate = task.FormatWhen(testNow.Add(3 * time.Hour))
	putTask(t, st, created)
	s.reconcile(testNow)

	if n, _ := port.live(); n != 1 {
		t.Fatalf("live one-shots = %d, want exactly 1 after move", n)
	}
	if got := s.entries[created.ID].atISO; got != created.DueDate {
		t.Fatalf("entry at %s, want %s", got, created.DueDate)
	}
	_, _, cancels := port.counts()
	if cancels != 1 {
		t.Fatalf("cancels = %d, want 1 (the stale registration)", cancels)
	}
}

func TestNotificationsDisabledCancelsEverything(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	putTask(t, st, task.Task{
		Title:   "Anything",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(testNow.Add(time.Hour)),
	})
	enabled := true
	if _, err := st.UpdateSettings(func(set *task.Settings) { set.DigestMorningEnabled = &enabled }); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	s.reconcile(testNow)
	oneShots, dailies := port.live()
	if oneShots != 1 || dailies != 1 {
		t.Fatalf("live = %d/%d, want 1/1", oneShots, dailies)
	}

	off := false
	if _, err := st.UpdateSettings(func(set *task.Settings) { set.NotificationsEnabled = &off }); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	s.reconcile(testNow)

	oneShots, dailies = port.live()
	if oneShots != 0 || dailies != 0 {
		t.Fatalf("live = %d/%d after disable, want 0/0", oneShots, dailies)
	}
	if len(s.entries) != 0 {
		t.Fatalf("entries not cleared: %d", len(s.entries))
	}
}

func TestDigestFingerprintIgnoresTaskChurn(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	enabled := true
	if _, err := st.UpdateSettings(func(set *task.Settings) {
		set.DigestMorningEnabled = &enabled
		set.DigestEveningEnabled = &enabled
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	s.reconcile(testNow)
	_, dailyA, _ := port.counts()
	if dailyA != 2 {
		t.Fatalf("daily registrations = %d, want 2", dailyA)
	}

	putTask(t, st, task.Task{Title: "Unrelated", Status: task.StatusNext})
	s.reconcile(testNow)
	_, dailyB, _ := port.counts()
	if dailyB != dailyA {
		t.Fatalf("task churn re-registered digests: %d -> %d", dailyA, dailyB)
	}

	if _, err := st.UpdateSettings(func(set *task.Settings) { set.DigestEveningTime = "21:30" }); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	s.reconcile(testNow)
	_, dailyC, _ := port.counts()
	if dailyC != dailyB+2 {
		t.Fatalf("settings change should re-register both digests: %d -> %d", dailyB, dailyC)
	}
}

func TestDigestMalformedTimeFallsBack(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	enabled := true
	if _, err := st.UpdateSettings(func(set *task.Settings) {
		set.DigestMorningEnabled = &enabled
		set.DigestMorningTime = "25:99"
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	s.reconcile(testNow)

	port.mu.Lock()
	defer port.mu.Unlock()
	if len(port.dailies) != 1 {
		t.Fatalf("dailies = %d, want 1", len(port.dailies))
	}
	for _, d := range port.dailies {
		if d.hour != 9 || d.minute != 0 {
			t.Fatalf("malformed time registered at %02d:%02d, want 09:00", d.hour, d.minute)
		}
	}
}

func TestSnoozeReplacesRegistration(t *testing.T) {
	t.Parallel()
	s, port, st := newTestService(t)
	created := putTask(t, st, task.Task{
		Title:   "Take out trash",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(testNow.Add(time.Minute)),
	})
	s.reconcile(testNow)

	if err := s.Snooze(created.ID); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	if n, _ := port.live(); n != 1 {
		t.Fatalf("live one-shots = %d, want 1 after snooze", n)
	}
	want := task.FormatWhen(testNow.Add(10 * time.Minute))
	if got := s.entries[created.ID].atISO; got != want {
		t.Fatalf("snoozed to %s, want %s", got, want)
	}

	if err := s.Snooze("no-such-task"); err != nil {
		t.Fatalf("snoozing an unknown task must be a no-op, got %v", err)
	}
	if n, _ := port.live(); n != 1 {
		t.Fatalf("unknown-task snooze changed registrations: %d live", n)
	}
}

func TestStartDegradesWithoutPermission(t *testing.T) {
	t.Parallel()
	st, err := store.Open(store.Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	putTask(t, st, task.Task{
		Title:   "Hidden",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(time.Now().Add(time.Hour)),
	})

	port := newFakePort()
	port.permitted = false
	s := New(Config{Enabled: true}, st, port, logx.Nop())

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	reg, daily, _ := port.counts()
	if reg != 0 || daily != 0 {
		t.Fatalf("denied permission still registered: %d/%d", reg, daily)
	}
}

func TestStartAndStopLifecycle(t *testing.T) {
	t.Parallel()
	st, err := store.Open(store.Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	created := putTask(t, st, task.Task{
		Title:   "Lifecycle",
		Status:  task.StatusNext,
		DueDate: task.FormatWhen(time.Now().Add(time.Hour)),
	})

	port := newFakePort()
	s := New(Config{Enabled: true}, st, port, logx.Nop())

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if n, _ := port.live(); n != 1 {
		t.Fatalf("live one-shots = %d, want 1", n)
	}
	if _, ok := port.categories[CategoryTaskReminder]; !ok {
		t.Fatal("task-reminder category not registered")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n, _ := port.live(); n != 0 {
		t.Fatalf("live one-shots after Stop = %d, want 0", n)
	}
	if _, ok := s.entries[created.ID]; ok {
		t.Fatal("entries survived Stop")
	}
}
