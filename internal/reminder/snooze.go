package reminder

import (
	"context"
	"errors"
	"time"

	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

// Snooze replaces a task's pending notification with one firing SnoozeMinutes
// from now. The replacement is unconditional: whatever was registered, fired
// or not, gets cancelled and a new one-shot takes its place. Snoozing a task
// that no longer exists is a no-op.
func (s *Service) Snooze(taskID string) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return errors.New("reminders inactive")
	}

	s.passMu.Lock()
	defer s.passMu.Unlock()

	snap := s.st.Snapshot()
	var target task.Task
	found := false
	for _, t := range snap.Tasks {
		if t.ID == taskID {
			target = t
			found = true
			break
		}
	}
	if !found {
		s.log.Debug("snooze for unknown task ignored", logx.String("task", taskID))
		return nil
	}

	s.mu.Lock()
	cur, have := s.entries[taskID]
	s.mu.Unlock()

	ctx := context.Background()
	if have {
		s.forget(taskID)
		if err := s.port.Cancel(ctx, cur.handle); err != nil {
			s.log.Debug("snooze cancel failed", logx.String("task", taskID), logx.Err(err))
		}
	}

	at := s.now().Add(time.Duration(s.cfg.SnoozeMinutes) * time.Minute)
	h, err := s.port.RegisterOneShot(ctx, taskContent(target, at), at)
	if err != nil {
		return err
	}
	s.remember(taskID, entry{atISO: task.FormatWhen(at), handle: h})
	s.log.Info("task snoozed", logx.String("task", taskID), logx.Int("minutes", s.cfg.SnoozeMinutes))
	return nil
}
