package store

import (
	"errors"
	"strings"

	logx "tickler/pkg/logx"
)

func openBackend(cfg Config, log logx.Logger) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none", "memory":
		return newMemoryBackend(), nil
	case "file":
		return openFileBackend(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
