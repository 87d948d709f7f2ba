package notify

import (
	"context"
	"time"
)

// Handle identifies one live scheduled notification.
type Handle string

// Content is what eventually gets shown to the user.
type Content struct {
	Title    string
	Body     string
	Category string
	// TaskID correlates a response back to the originating task; empty for
	// digests.
	TaskID string
	// Kind tags the notification class ("task-reminder", "daily-digest").
	Kind string
}

// Action is a button offered on a delivered notification.
type Action struct {
	ID       string
	Title    string
	OpensApp bool
}

// Response is a user interaction with a delivered notification.
type Response struct {
	ActionID string
	TaskID   string
}

// Port is the local notification capability the reminder service schedules
// against. A nil Port means "no backend on this platform": the reminder
// service checks that once at startup and degrades to a no-op.
//
// Cancel is idempotent; cancelling an unknown or already-fired handle is not
// an error.
type Port interface {
	CheckPermission(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)

	RegisterOneShot(ctx context.Context, c Content, fireAt time.Time) (Handle, error)
	RegisterDaily(ctx context.Context, c Content, hour, minute int) (Handle, error)
	Cancel(ctx context.Context, h Handle) error

	RegisterCategory(ctx context.Context, id string, actions []Action) error
	OnResponse(fn func(Response)) (unsubscribe func())
}
