package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"storage": {"driver": "file", "path": "./tickler_store"},
		"notify": {"backend": "desktop", "timezone": "Asia/Jakarta"},
		"reminder": {"snooze_minutes": 15}
	}`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Storage.Driver != "file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Notify.Backend != "desktop" || cfg.Reminder.SnoozeMinutes != 15 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.ReminderEnabled() {
		t.Fatal("omitted reminder.enabled must default to on")
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  console: true
storage:
  driver: sqlite
  path: ./tickler.db
notify:
  backend: telegram
  telegram:
    token: "123:abc"
    chat_id: 42
reminder:
  enabled: false
`)

	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Notify.Telegram.ChatID != 42 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ReminderEnabled() {
		t.Fatal("explicit reminder.enabled=false must stick")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"loging": {"level": "info"}}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("typo'd key must be rejected")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging": {"level": "info"}}{"extra": 1}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("concatenated JSON must be rejected")
	}
}
