package reminder

import (
	"context"
	"time"

	"tickler/internal/i18n"
	"tickler/internal/notify"
	logx "tickler/pkg/logx"
)

// New builds the reminder service. port may be nil when the platform has no
// notification backend; the service then starts and immediately degrades to a
// no-op so the rest of the app is unaffected.
func New(cfg Config, st Store, port notify.Port, log logx.Logger) *Service {
	cfg.applyDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		log:     log.With(logx.String("service", "reminder")),
		port:    port,
		st:      st,
		now:     time.Now,
		entries: map[string]entry{},
	}
}

// Start checks the backend once, registers the notification category, runs an
// initial reconciliation and then follows the store's change feed. Calling
// Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.cfg.Enabled {
		s.log.Info("reminders disabled by config")
		return nil
	}
	if s.port == nil {
		s.log.Warn("no notification backend, reminders inactive")
		return nil
	}

	granted, err := s.port.CheckPermission(ctx)
	if err != nil {
		s.log.Warn("permission check failed", logx.Err(err))
	}
	if !granted {
		granted, err = s.port.RequestPermission(ctx)
		if err != nil {
			s.log.Warn("permission request failed", logx.Err(err))
		}
	}
	if !granted {
		s.log.Warn("notification permission denied, reminders inactive")
		return nil
	}

	lang := i18n.Normalize(s.st.Snapshot().Settings.Normalized().Language)
	if err := s.port.RegisterCategory(ctx, CategoryTaskReminder, []notify.Action{
		{ID: ActionSnooze, Title: i18n.T(lang, "action.snooze10")},
		{ID: ActionOpen, Title: i18n.T(lang, "action.open"), OpensApp: true},
	}); err != nil {
		// Category registration failing only loses the buttons.
		s.log.Warn("category registration failed", logx.Err(err))
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	s.unsubOnResp = s.port.OnResponse(s.handleResponse)

	s.reconcile(s.now())

	ch, unsub := s.st.Subscribe(1)
	s.unsubStore = unsub
	s.wg.Add(1)
	go s.follow(ch)

	s.log.Info("reminder service started")
	return nil
}

// Stop cancels every live registration best-effort and detaches from the
// store. The service can be started again afterwards.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	wasActive := s.active
	s.active = false
	close(s.stopCh)
	s.mu.Unlock()

	if s.unsubStore != nil {
		s.unsubStore()
		s.unsubStore = nil
	}
	if s.unsubOnResp != nil {
		s.unsubOnResp()
		s.unsubOnResp = nil
	}
	s.wg.Wait()

	if wasActive {
		s.cancelAll(ctx)
	}

	s.mu.Lock()
	s.entries = map[string]entry{}
	s.digestHandles = nil
	s.haveDigestFP = false
	s.mu.Unlock()

	s.log.Info("reminder service stopped")
	return nil
}

func (s *Service) follow(ch <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.reconcile(s.now())
		}
	}
}

// cancelAll cancels every per-task and digest handle. Cancellation is
// best-effort: a handle that already fired or never existed is fine.
func (s *Service) cancelAll(ctx context.Context) {
	s.mu.Lock()
	handles := make([]notify.Handle, 0, len(s.entries)+len(s.digestHandles))
	for _, e := range s.entries {
		handles = append(handles, e.handle)
	}
	handles = append(handles, s.digestHandles...)
	s.mu.Unlock()

	for _, h := range handles {
		if err := s.port.Cancel(ctx, h); err != nil {
			s.log.Debug("cancel failed", logx.String("handle", string(h)), logx.Err(err))
		}
	}
}

func (s *Service) handleResponse(r notify.Response) {
	switch r.ActionID {
	case ActionSnooze:
		if r.TaskID == "" {
			return
		}
		if err := s.Snooze(r.TaskID); err != nil {
			s.log.Warn("snooze failed", logx.String("task", r.TaskID), logx.Err(err))
		}
	case ActionOpen:
		// Opening the app is the poster's job; nothing to reschedule.
		s.log.Debug("open action", logx.String("task", r.TaskID))
	default:
		s.log.Debug("unhandled action", logx.String("action", r.ActionID))
	}
}
