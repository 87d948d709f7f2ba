package config

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Notify   NotifyConfig   `json:"notify"`
	Reminder ReminderConfig `json:"reminder"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tickler_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifyConfig selects and configures the notification backend.
//
// Backend is one of "desktop", "telegram", "none". An empty value means
// "desktop", falling back to none when no session bus is available.
type NotifyConfig struct {
	Backend  string `json:"backend"`
	Timezone string `json:"timezone,omitempty"`
	// PostTimeout bounds a single delivery attempt. Go duration string.
	PostTimeout string `json:"post_timeout,omitempty"`

	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// ReminderConfig controls the reminder subsystem.
//
// Enabled is a pointer so an omitted value (default on) can be told apart
// from an explicit false.
type ReminderConfig struct {
	Enabled       *bool `json:"enabled,omitempty"`
	SnoozeMinutes int   `json:"snooze_minutes,omitempty"`
}

// ReminderEnabled resolves the default: reminders run unless explicitly off.
func (c *Config) ReminderEnabled() bool {
	return c.Reminder.Enabled == nil || *c.Reminder.Enabled
}
