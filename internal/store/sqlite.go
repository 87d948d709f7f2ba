//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteBackend struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Backend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	b := &sqliteBackend{db: db, log: log}
	if err := b.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *sqliteBackend) migrate(ctx context.Context) error {
	raw, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, string(raw))
	return err
}

func (b *sqliteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *sqliteBackend) Load() ([]task.Task, task.Settings, error) {
	rows, err := b.db.Query(`SELECT data FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, task.Settings{}, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, task.Settings{}, err
		}
		var t task.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			b.log.Warn("skipping unreadable task row", logx.Err(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, task.Settings{}, err
	}

	var settings task.Settings
	var raw string
	err = b.db.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, task.Settings{}, err
	default:
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			b.log.Warn("settings row unreadable, using defaults", logx.Err(err))
			settings = task.Settings{}
		}
	}
	return tasks, settings, nil
}

func (b *sqliteBackend) PutTask(t task.Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	createdAt := t.CreatedAt
	if createdAt == "" {
		createdAt = task.FormatWhen(time.Now())
	}
	_, err = b.db.Exec(
		`INSERT INTO tasks(id, data, created_at, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		t.ID, string(raw), createdAt, t.UpdatedAt,
	)
	return err
}

func (b *sqliteBackend) DeleteTask(id string) error {
	_, err := b.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (b *sqliteBackend) PutSettings(s task.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO settings(id, data) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data`,
		string(raw),
	)
	return err
}
