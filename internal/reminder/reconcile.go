package reminder

import (
	"context"
	"fmt"
	"time"

	"tickler/internal/notify"
	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

// reconcile brings the port's registrations in line with the store: one
// pending one-shot per task with a future occurrence, nothing for anything
// else. It is a full pass over a snapshot, keyed by the occurrence instant,
// so re-running it after an unrelated change touches nothing.
func (s *Service) reconcile(now time.Time) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.passMu.Lock()
	defer s.passMu.Unlock()

	snap := s.st.Snapshot()
	settings := snap.Settings.Normalized()
	ctx := context.Background()

	if !settings.NotificationsEnabled {
		s.cancelAll(ctx)
		s.mu.Lock()
		s.entries = map[string]entry{}
		s.digestHandles = nil
		s.haveDigestFP = false
		s.mu.Unlock()
		return
	}

	seen := make(map[string]struct{}, len(snap.Tasks))
	for _, t := range snap.Tasks {
		seen[t.ID] = struct{}{}
		if err := s.reconcileTask(ctx, t, now); err != nil {
			s.log.Warn("task reconcile failed", logx.String("task", t.ID), logx.Err(err))
		}
	}

	// Sweep entries for tasks that no longer exist at all.
	s.mu.Lock()
	var stale []entry
	for id, e := range s.entries {
		if _, ok := seen[id]; !ok {
			stale = append(stale, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	for _, e := range stale {
		_ = s.port.Cancel(ctx, e.handle)
	}

	s.reconcileDigests(ctx, settings)
}

func (s *Service) reconcileTask(ctx context.Context, t task.Task, now time.Time) error {
	at, ok := task.NextScheduledAt(t, now)

	s.mu.Lock()
	cur, have := s.entries[t.ID]
	s.mu.Unlock()

	if !ok {
		// Done, archived, deleted, or nothing in the future: whatever is
		// registered must go.
		if have {
			s.forget(t.ID)
			if err := s.port.Cancel(ctx, cur.handle); err != nil {
				return err
			}
		}
		return nil
	}

	iso := task.FormatWhen(at)
	if have && cur.atISO == iso {
		return nil
	}
	if have {
		s.forget(t.ID)
		// Old registration is replaced below even if this cancel fails.
		if err := s.port.Cancel(ctx, cur.handle); err != nil {
			s.log.Debug("stale cancel failed", logx.String("task", t.ID), logx.Err(err))
		}
	}

	h, err := s.port.RegisterOneShot(ctx, taskContent(t, at), at)
	if err != nil {
		return err
	}
	s.remember(t.ID, entry{atISO: iso, handle: h})
	return nil
}

func (s *Service) remember(id string, e entry) {
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

func taskContent(t task.Task, at time.Time) notify.Content {
	body := t.Description
	if body == "" {
		body = fmt.Sprintf("Scheduled for %s", at.Local().Format("Mon 15:04"))
	}
	return notify.Content{
		Title:    t.Title,
		Body:     body,
		Category: CategoryTaskReminder,
		TaskID:   t.ID,
		Kind:     KindTaskReminder,
	}
}
