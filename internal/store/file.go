package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

// fileBackend is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.tasks.snapshot.json (periodic snapshot, id → task)
//   - <prefix>.tasks.journal.jsonl (append-only journal)
//   - <prefix>.settings.json       (atomic replace on every settings write)
//
// The journal is periodically compacted into the snapshot.
type fileBackend struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	settingsPath string
	journalFile  *os.File

	tasks  map[string]task.Task
	writes int
}

type journalRecord struct {
	Op   string     `json:"op"` // "put" or "del"
	ID   string     `json:"id,omitempty"`
	Task *task.Task `json:"task,omitempty"`
}

const compactEvery = 500

func openFileBackend(cfg Config, log logx.Logger) (Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	b := &fileBackend{
		log:          log,
		snapshotPath: prefix + ".tasks.snapshot.json",
		settingsPath: prefix + ".settings.json",
		tasks:        map[string]task.Task{},
	}

	journalPath := prefix + ".tasks.journal.jsonl"
	_ = b.loadSnapshot()
	_ = b.replayJournal(journalPath)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	b.journalFile = jf
	return b, nil
}

func (b *fileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journalFile == nil {
		return nil
	}
	err := b.journalFile.Close()
	b.journalFile = nil
	return err
}

func (b *fileBackend) Load() ([]task.Task, task.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := make([]task.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		tasks = append(tasks, t)
	}
	tasks = task.SortTasks(tasks)

	var settings task.Settings
	if raw, err := os.ReadFile(b.settingsPath); err == nil {
		// A corrupt settings file falls back to defaults rather than failing
		// the whole store.
		if err := json.Unmarshal(raw, &settings); err != nil {
			b.log.Warn("settings file unreadable, using defaults", logx.Err(err))
			settings = task.Settings{}
		}
	}
	return tasks, settings, nil
}

func (b *fileBackend) PutTask(t task.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journalFile == nil {
		return errors.New("task journal closed")
	}
	b.tasks[t.ID] = t
	return b.appendLocked(journalRecord{Op: "put", Task: &t})
}

func (b *fileBackend) DeleteTask(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journalFile == nil {
		return errors.New("task journal closed")
	}
	delete(b.tasks, id)
	return b.appendLocked(journalRecord{Op: "del", ID: id})
}

func (b *fileBackend) PutSettings(s task.Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return atomicWrite(b.settingsPath, raw)
}

func (b *fileBackend) appendLocked(rec journalRecord) error {
	if err := json.NewEncoder(b.journalFile).Encode(rec); err != nil {
		return err
	}
	b.writes++
	if b.writes%compactEvery == 0 {
		if err := b.compactLocked(); err != nil {
			b.log.Debug("journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (b *fileBackend) compactLocked() error {
	raw, err := json.Marshal(b.tasks)
	if err != nil {
		return err
	}
	if err := atomicWrite(b.snapshotPath, raw); err != nil {
		return err
	}
	if err := b.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = b.journalFile.Seek(0, 2)
	return err
}

func (b *fileBackend) loadSnapshot() error {
	raw, err := os.ReadFile(b.snapshotPath)
	if err != nil {
		return err
	}
	var m map[string]task.Task
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for id, t := range m {
		b.tasks[id] = t
	}
	return nil
}

func (b *fileBackend) replayJournal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec journalRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		switch rec.Op {
		case "put":
			if rec.Task != nil && rec.Task.ID != "" {
				b.tasks[rec.Task.ID] = *rec.Task
			}
		case "del":
			delete(b.tasks, rec.ID)
		}
	}
	return sc.Err()
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
