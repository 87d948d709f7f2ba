package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "tickler/pkg/logx"
)

type stubPoster struct {
	mu     sync.Mutex
	posted []Content
	ready  error
	emit   func(Response)
}

func (p *stubPoster) Ready(ctx context.Context) error { return p.ready }

func (p *stubPoster) Post(ctx context.Context, c Content, actions []Action) error {
	p.mu.Lock()
	p.posted = append(p.posted, c)
	p.mu.Unlock()
	return nil
}

func (p *stubPoster) OnAction(fn func(Response)) { p.emit = fn }

func TestEngineLifecycleAndBookkeeping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := NewEngine(Config{}, &stubPoster{}, logx.Nop())
	e.Start(ctx)
	defer e.Stop(ctx)

	h1, err := e.RegisterOneShot(ctx, Content{Kind: "task-reminder", TaskID: "a"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("RegisterOneShot: %v", err)
	}
	h2, err := e.RegisterDaily(ctx, Content{Kind: "daily-digest"}, 9, 0)
	if err != nil {
		t.Fatalf("RegisterDaily: %v", err)
	}
	if one, daily := e.Pending(); one != 1 || daily != 1 {
		t.Fatalf("Pending = %d,%d, want 1,1", one, daily)
	}

	if err := e.Cancel(ctx, h1); err != nil {
		t.Fatalf("Cancel one-shot: %v", err)
	}
	if err := e.Cancel(ctx, h2); err != nil {
		t.Fatalf("Cancel daily: %v", err)
	}
	// Cancelling again (or an unknown handle) is not an error.
	if err := e.Cancel(ctx, h1); err != nil {
		t.Fatalf("repeat Cancel: %v", err)
	}
	if err := e.Cancel(ctx, Handle("missing")); err != nil {
		t.Fatalf("unknown Cancel: %v", err)
	}
	if one, daily := e.Pending(); one != 0 || daily != 0 {
		t.Fatalf("Pending = %d,%d, want 0,0", one, daily)
	}
}

func TestEngineRejectsWhenStopped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := NewEngine(Config{}, &stubPoster{}, logx.Nop())
	if _, err := e.RegisterOneShot(ctx, Content{}, time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error before Start")
	}
	if _, err := e.RegisterDaily(ctx, Content{}, 9, 0); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestEngineInvalidDaily(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := NewEngine(Config{}, &stubPoster{}, logx.Nop())
	e.Start(ctx)
	defer e.Stop(ctx)
	if _, err := e.RegisterDaily(ctx, Content{}, 25, 99); err == nil {
		t.Fatal("expected error for out-of-range trigger")
	}
}

func TestEnginePermissionFollowsPoster(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &stubPoster{ready: errors.New("no session bus")}
	e := NewEngine(Config{}, p, logx.Nop())
	if ok, err := e.CheckPermission(ctx); err != nil || ok {
		t.Fatalf("CheckPermission = %v,%v, want denied without error", ok, err)
	}
	p.ready = nil
	if ok, _ := e.RequestPermission(ctx); !ok {
		t.Fatal("RequestPermission should grant once poster is ready")
	}
}

func TestEngineResponseFanout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &stubPoster{}
	e := NewEngine(Config{}, p, logx.Nop())
	e.Start(ctx)
	defer e.Stop(ctx)

	got := make(chan Response, 1)
	unsub := e.OnResponse(func(r Response) { got <- r })
	defer unsub()

	p.emit(Response{ActionID: "snooze10", TaskID: "t-1"})
	select {
	case r := <-got:
		if r.ActionID != "snooze10" || r.TaskID != "t-1" {
			t.Fatalf("unexpected response %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("response not delivered")
	}

	unsub()
	p.emit(Response{ActionID: "open"})
	select {
	case <-got:
		t.Fatal("unsubscribed listener still invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClampDelay(t *testing.T) {
	t.Parallel()
	if d := clampDelay(-time.Hour); d != time.Second {
		t.Fatalf("past instant: got %v, want 1s", d)
	}
	if d := clampDelay(0); d != time.Second {
		t.Fatalf("zero delay: got %v, want 1s", d)
	}
	if d := clampDelay(time.Hour); d != time.Hour {
		t.Fatalf("future instant: got %v, want 1h", d)
	}
}
