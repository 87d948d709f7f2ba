package store

import (
	"errors"
	"time"

	"tickler/internal/task"
)

var ErrNotFound = errors.New("task not found")

// Config selects the persistence backend.
//
// Driver values:
//   - "" or "memory": in-memory only (nothing survives restart)
//   - "file": dependency-free file backend (snapshot + jsonl journal)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Backend is the persistence API behind the Store. The Store keeps the
// authoritative in-memory state; backends only mirror it durably.
type Backend interface {
	Load() ([]task.Task, task.Settings, error)
	PutTask(t task.Task) error
	DeleteTask(id string) error
	PutSettings(s task.Settings) error
	Close() error
}

// Snapshot is a point-in-time copy of the full task/settings state. Consumers
// re-read it wholesale on every change notification instead of diffing.
type Snapshot struct {
	Tasks    []task.Task
	Settings task.Settings
}
