package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tickler/internal/config"
	"tickler/internal/notify"
	"tickler/internal/notify/desktop"
	"tickler/internal/notify/telegram"
	"tickler/internal/reminder"
	"tickler/internal/store"
	logx "tickler/pkg/logx"
)

// App wires config, logging, storage, the notification engine and the
// reminder service into one process.
type App struct {
	cfgPath string

	cfgm *config.ConfigManager

	log  logx.Logger
	logs *logx.Service

	store  *store.Store
	poster poster
	engine *notify.Engine
	rem    *reminder.Service

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// poster is the closable delivery backend behind the engine; nil when the
// platform has none.
type poster interface {
	notify.Poster
	Close() error
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, logSvc.Logger().With(logx.String("comp", "store")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   st,
	}

	postTimeout, err := config.ParseDurationOrDefault("notify.post_timeout", cfg.Notify.PostTimeout, 10*time.Second)
	if err != nil {
		_ = st.Close()
		logSvc.Close()
		return nil, err
	}

	// Backend selection is best-effort: a desktop without a session bus just
	// means no notifications, not a failed start.
	a.poster = a.openPoster(cfg)

	var port notify.Port
	if a.poster != nil {
		a.engine = notify.NewEngine(notify.Config{
			Timezone:    cfg.Notify.Timezone,
			PostTimeout: postTimeout,
		}, a.poster, logSvc.Logger().With(logx.String("comp", "notify")))
		port = a.engine
	}

	a.rem = reminder.New(reminder.Config{
		Enabled:       cfg.ReminderEnabled(),
		SnoozeMinutes: cfg.Reminder.SnoozeMinutes,
	}, st, port, logSvc.Logger())

	return a, nil
}

func (a *App) openPoster(cfg *config.Config) poster {
	backend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	switch backend {
	case "none":
		return nil
	case "telegram":
		poll, err := config.ParseDurationOrDefault("notify.telegram.poll_timeout", cfg.Notify.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			a.log.Warn("invalid telegram poll_timeout; notifications disabled", logx.Err(err))
			return nil
		}
		p, err := telegram.New(telegram.Config{
			Token:       cfg.Notify.Telegram.Token,
			ChatID:      cfg.Notify.Telegram.ChatID,
			RatePerSec:  cfg.Notify.Telegram.RatePerSec,
			PollTimeout: poll,
		}, a.logs.Logger().With(logx.String("comp", "telegram")))
		if err != nil {
			a.log.Warn("telegram backend unavailable; notifications disabled", logx.Err(err))
			return nil
		}
		return p
	default: // "desktop" or empty
		p, err := desktop.New(a.logs.Logger().With(logx.String("comp", "desktop")))
		if err != nil {
			a.log.Warn("desktop backend unavailable; notifications disabled", logx.Err(err))
			return nil
		}
		return p
	}
}

// Store exposes the task store for the CLI surface.
func (a *App) Store() *store.Store { return a.store }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := config.ParseDurationField("notify.post_timeout", cfg.Notify.PostTimeout); err != nil {
			return err
		}
		if _, err := config.ParseDurationField("notify.telegram.poll_timeout", cfg.Notify.Telegram.PollTimeout); err != nil {
			return err
		}
		if tz := strings.TrimSpace(cfg.Notify.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("notify.timezone: invalid %q: %w", tz, err)
			}
		}
		if cfg.Reminder.SnoozeMinutes < 0 {
			return fmt.Errorf("reminder.snooze_minutes must be >= 0")
		}
		if _, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
		return nil
	})

	if a.engine != nil {
		a.engine.Start(runCtx)
	}
	if err := a.rem.Start(runCtx); err != nil {
		return err
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-runCtx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(runCtx, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	for _, s := range sections {
		switch s {
		case "logging":
			a.logs.Apply(logx.Config{
				Level:   newCfg.Logging.Level,
				Console: newCfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: newCfg.Logging.File.Enabled,
					Path:    newCfg.Logging.File.Path,
				},
			})
		case "storage", "notify":
			a.log.Warn("config changed; restart required for changes to take effect",
				logx.String("section", s))
		case "reminder":
			// Restart the reminder service under the new settings.
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			_ = a.rem.Stop(stopCtx)
			cancel()

			var port notify.Port
			if a.engine != nil {
				port = a.engine
			}
			a.rem = reminder.New(reminder.Config{
				Enabled:       newCfg.ReminderEnabled(),
				SnoozeMinutes: newCfg.Reminder.SnoozeMinutes,
			}, a.store, port, a.logs.Logger())
			if err := a.rem.Start(ctx); err != nil {
				a.log.Warn("reminder restart failed", logx.Err(err))
			}
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")
	if a.cancel != nil {
		a.cancel()
	}

	// Bound each shutdown step so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("reminder", 3*time.Second, func(c context.Context) error { return a.rem.Stop(c) })
	if a.engine != nil {
		step("notify", 2*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	}
	if a.poster != nil {
		step("poster", 2*time.Second, func(context.Context) error { return a.poster.Close() })
	}
	step("store", 2*time.Second, func(context.Context) error { return a.store.Close() })

	done := make(chan struct{})
	go func() { a.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}
