// Package desktop delivers notifications over the org.freedesktop.Notifications
// D-Bus interface (the standard Linux desktop notification daemon).
package desktop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"tickler/internal/notify"
	logx "tickler/pkg/logx"
)

const (
	busName   = "org.freedesktop.Notifications"
	busPath   = "/org/freedesktop/Notifications"
	busIface  = "org.freedesktop.Notifications"
	appName   = "tickler"
	noExpires = int32(-1)
)

type Poster struct {
	log  logx.Logger
	conn *dbus.Conn

	mu sync.Mutex
	// posted maps the daemon-assigned notification id to the originating
	// task, so ActionInvoked signals can be correlated back.
	posted map[uint32]string
	emit   func(notify.Response)

	signals chan *dbus.Signal
	done    chan struct{}
}

// New connects to the session bus. An absent bus (headless host, sandbox)
// comes back as an error; callers treat that as "no backend".
func New(log logx.Logger) (*Poster, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	p := &Poster{
		log:     log,
		conn:    conn,
		posted:  map[uint32]string{},
		signals: make(chan *dbus.Signal, 16),
		done:    make(chan struct{}),
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(busIface),
		dbus.WithMatchMember("ActionInvoked"),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("match ActionInvoked: %w", err)
	}
	conn.Signal(p.signals)
	go p.signalLoop()

	return p, nil
}

func (p *Poster) Close() error {
	close(p.done)
	return p.conn.Close()
}

func (p *Poster) Ready(ctx context.Context) error {
	if p.conn == nil || !p.conn.Connected() {
		return errors.New("session bus disconnected")
	}
	return nil
}

func (p *Poster) OnAction(fn func(notify.Response)) {
	p.mu.Lock()
	p.emit = fn
	p.mu.Unlock()
}

func (p *Poster) Post(ctx context.Context, c notify.Content, actions []notify.Action) error {
	// Actions are flattened [key, label, key, label, ...] per the spec of
	// the Notify call.
	flat := make([]string, 0, len(actions)*2)
	for _, a := range actions {
		flat = append(flat, a.ID, a.Title)
	}

	obj := p.conn.Object(busName, dbus.ObjectPath(busPath))
	call := obj.CallWithContext(ctx, busIface+".Notify", 0,
		appName,
		uint32(0), // no replaces_id: the engine cancels before re-registering
		"",        // default icon
		c.Title,
		c.Body,
		flat,
		map[string]dbus.Variant{},
		noExpires,
	)
	if call.Err != nil {
		return call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return err
	}
	if c.TaskID != "" {
		p.mu.Lock()
		p.posted[id] = c.TaskID
		p.mu.Unlock()
	}
	return nil
}

func (p *Poster) signalLoop() {
	for {
		select {
		case <-p.done:
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			if sig == nil || sig.Name != busIface+".ActionInvoked" || len(sig.Body) < 2 {
				continue
			}
			id, _ := sig.Body[0].(uint32)
			key, _ := sig.Body[1].(string)
			if key == "" {
				continue
			}

			p.mu.Lock()
			taskID := p.posted[id]
			delete(p.posted, id)
			emit := p.emit
			p.mu.Unlock()

			p.log.Debug("action invoked", logx.String("action", key), logx.String("task_id", taskID))
			if emit != nil {
				emit(notify.Response{ActionID: key, TaskID: taskID})
			}
		}
	}
}
