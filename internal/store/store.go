package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

// Store owns the task and settings state. All mutation goes through it; the
// reminder subsystem and CLI only ever read snapshots and subscribe to the
// change feed.
type Store struct {
	log     logx.Logger
	backend Backend

	mu       sync.RWMutex
	tasks    map[string]task.Task
	order    []string
	settings task.Settings

	subsMu sync.Mutex
	subs   map[uint64]chan struct{}
	seq    uint64
}

// Open initializes the configured backend and loads existing state.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	backend, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	tasks, settings, err := backend.Load()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	s := &Store{
		log:      log,
		backend:  backend,
		tasks:    make(map[string]task.Task, len(tasks)),
		order:    make([]string, 0, len(tasks)),
		settings: settings,
		subs:     map[uint64]chan struct{}{},
	}
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; !dup {
			s.order = append(s.order, t.ID)
		}
		s.tasks[t.ID] = t
	}
	log.Debug("store opened", logx.String("driver", cfg.Driver), logx.Int("tasks", len(s.order)))
	return s, nil
}

func (s *Store) Close() error {
	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
	return s.backend.Close()
}

// Snapshot returns a copy of the full state, tasks in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		Tasks:    make([]task.Task, 0, len(s.order)),
		Settings: s.settings,
	}
	for _, id := range s.order {
		out.Tasks = append(out.Tasks, s.tasks[id])
	}
	return out
}

// Get returns one task by id.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Put inserts or replaces a task. A missing id gets generated; timestamps are
// stamped here so callers never fabricate them.
func (s *Store) Put(t task.Task) (task.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return task.Task{}, errors.New("task title is required")
	}
	now := task.FormatWhen(time.Now())
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = task.StatusInbox
	}
	if t.CreatedAt == "" {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := s.backend.PutTask(t); err != nil {
		return task.Task{}, err
	}

	s.mu.Lock()
	if _, exists := s.tasks[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.tasks[t.ID] = t
	s.mu.Unlock()

	s.notify()
	return t, nil
}

// Complete finishes a task. Recurring tasks roll forward to their next
// instance per their strategy instead of closing, so the scheduler keeps
// projecting them; one-shot tasks move to done.
func (s *Store) Complete(id string, at time.Time) (task.Task, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return task.Task{}, ErrNotFound
	}

	if next, recurred := task.Advance(t, at); recurred {
		t = next
	} else {
		t.Status = task.StatusDone
		t.CompletedAt = task.FormatWhen(at)
	}
	t.UpdatedAt = task.FormatWhen(at)

	if err := s.backend.PutTask(t); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()

	s.notify()
	return t, nil
}

// Delete soft-deletes a task. It stays in the store (and in snapshots) but
// the deletedAt mark makes it inert for scheduling.
func (s *Store) Delete(id string, at time.Time) error {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	t.DeletedAt = task.FormatWhen(at)
	t.UpdatedAt = t.DeletedAt

	if err := s.backend.PutTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()

	s.notify()
	return nil
}

// Erase removes a task permanently.
func (s *Store) Erase(id string) error {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.backend.DeleteTask(id); err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpdateSettings applies a mutation to the settings record.
func (s *Store) UpdateSettings(mutate func(*task.Settings)) (task.Settings, error) {
	s.mu.Lock()
	next := s.settings
	mutate(&next)
	s.settings = next
	s.mu.Unlock()

	if err := s.backend.PutSettings(next); err != nil {
		return task.Settings{}, err
	}
	s.notify()
	return next, nil
}

// Subscribe returns an edge-triggered change feed: one (possibly coalesced)
// tick per committed mutation, no payload. Listeners re-read Snapshot().
func (s *Store) Subscribe(buffer int) (<-chan struct{}, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan struct{}, buffer)

	s.subsMu.Lock()
	s.seq++
	id := s.seq
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.subsMu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.subsMu.Unlock()
		})
	}
	return ch, unsub
}

// notify is non-blocking: a full buffer means a tick is already pending and
// the listener will re-read the latest snapshot anyway.
func (s *Store) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
