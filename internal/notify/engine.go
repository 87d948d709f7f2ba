package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	logx "tickler/pkg/logx"
)

// Poster delivers a notification the moment it fires. The engine owns the
// "when"; posters own the "how".
type Poster interface {
	// Ready reports whether the backend can deliver right now. The engine
	// maps this onto the permission checks of the Port contract.
	Ready(ctx context.Context) error
	Post(ctx context.Context, c Content, actions []Action) error
	// OnAction registers the user-response callback. Posters without an
	// interactive surface may ignore fn.
	OnAction(fn func(Response))
}

// Config controls the scheduling engine.
type Config struct {
	Timezone string // IANA TZ for daily triggers; empty means local
	// PostTimeout bounds a single delivery attempt.
	PostTimeout time.Duration
}

// Engine implements Port on top of in-process timers (one-shots) and a
// tz-aware cron (daily repeats), delegating delivery to a Poster.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	poster Poster
	loc    *time.Location

	c       *cron.Cron
	timers  map[Handle]*time.Timer
	entries map[Handle]cron.EntryID

	categories map[string][]Action

	subsMu sync.Mutex
	subs   map[uint64]func(Response)
	seq    uint64

	stopCh chan struct{}
}

func NewEngine(cfg Config, poster Poster, log logx.Logger) *Engine {
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:        cfg,
		log:        log,
		poster:     poster,
		timers:     map[Handle]*time.Timer{},
		entries:    map[Handle]cron.EntryID{},
		categories: map[string][]Action{},
		subs:       map[uint64]func(Response){},
	}
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})

	e.loc = e.loadLocationLocked()
	e.c = cron.New(cron.WithLocation(e.loc))
	e.c.Start()

	e.poster.OnAction(e.emit)
	e.log.Info("notify engine started", logx.String("tz", e.loc.String()))
}

func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.stopCh = nil

	if e.c != nil {
		<-e.c.Stop().Done()
		e.c = nil
	}
	for _, t := range e.timers {
		_ = t.Stop()
	}
	e.timers = map[Handle]*time.Timer{}
	e.entries = map[Handle]cron.EntryID{}
	e.log.Info("notify engine stopped")
}

func (e *Engine) CheckPermission(ctx context.Context) (bool, error) {
	if err := e.poster.Ready(ctx); err != nil {
		e.log.Debug("backend not ready", logx.Err(err))
		return false, nil
	}
	return true, nil
}

// RequestPermission re-probes the poster; local backends have no interactive
// permission prompt, so check and request coincide.
func (e *Engine) RequestPermission(ctx context.Context) (bool, error) {
	return e.CheckPermission(ctx)
}

func (e *Engine) RegisterOneShot(ctx context.Context, c Content, fireAt time.Time) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopCh == nil {
		return "", errors.New("notify engine not started")
	}

	h := Handle(uuid.NewString())
	delay := clampDelay(time.Until(fireAt))
	actions := e.categories[c.Category]

	e.timers[h] = time.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.timers, h)
		e.mu.Unlock()
		e.deliver(c, actions)
	})
	e.log.Debug("one-shot registered",
		logx.String("handle", string(h)),
		logx.String("kind", c.Kind),
		logx.Duration("delay", delay),
	)
	return h, nil
}

func (e *Engine) RegisterDaily(ctx context.Context, c Content, hour, minute int) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.c == nil {
		return "", errors.New("notify engine not started")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid daily trigger %02d:%02d", hour, minute)
	}

	h := Handle(uuid.NewString())
	actions := e.categories[c.Category]
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := e.c.AddFunc(spec, func() { e.deliver(c, actions) })
	if err != nil {
		return "", err
	}
	e.entries[h] = id
	e.log.Debug("daily trigger registered",
		logx.String("handle", string(h)),
		logx.String("kind", c.Kind),
		logx.String("spec", spec),
	)
	return h, nil
}

func (e *Engine) Cancel(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[h]; ok {
		_ = t.Stop()
		delete(e.timers, h)
		return nil
	}
	if id, ok := e.entries[h]; ok {
		if e.c != nil {
			e.c.Remove(id)
		}
		delete(e.entries, h)
	}
	// Unknown handles are fine: the notification may have fired already.
	return nil
}

func (e *Engine) RegisterCategory(ctx context.Context, id string, actions []Action) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("category id is required")
	}
	e.mu.Lock()
	e.categories[id] = append([]Action(nil), actions...)
	e.mu.Unlock()
	return nil
}

func (e *Engine) OnResponse(fn func(Response)) func() {
	e.subsMu.Lock()
	e.seq++
	id := e.seq
	e.subs[id] = fn
	e.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, id)
			e.subsMu.Unlock()
		})
	}
}

// Pending reports how many one-shot and daily registrations are live.
func (e *Engine) Pending() (oneShots, dailies int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers), len(e.entries)
}

func (e *Engine) deliver(c Content, actions []Action) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PostTimeout)
	defer cancel()
	if err := e.poster.Post(ctx, c, actions); err != nil {
		e.log.Warn("delivery failed", logx.String("kind", c.Kind), logx.Err(err))
		return
	}
	e.log.Debug("delivered", logx.String("kind", c.Kind), logx.String("task_id", c.TaskID))
}

func (e *Engine) emit(r Response) {
	e.subsMu.Lock()
	fns := make([]func(Response), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

func (e *Engine) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(e.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// clampDelay keeps one-shot delays strictly positive: registering in the past
// or at zero delay trips platform quirks around immediate fire.
func clampDelay(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
