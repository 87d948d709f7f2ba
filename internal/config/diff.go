package config

import (
	"sort"
	"strings"

	logx "tickler/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (the telegram token) are reported as
// set/unset only.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Storage.Driver) != strings.TrimSpace(newCfg.Storage.Driver) ||
		strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
		)
	}

	// Notify (never log the token itself)
	if strings.TrimSpace(oldCfg.Notify.Backend) != strings.TrimSpace(newCfg.Notify.Backend) ||
		strings.TrimSpace(oldCfg.Notify.Timezone) != strings.TrimSpace(newCfg.Notify.Timezone) ||
		strings.TrimSpace(oldCfg.Notify.PostTimeout) != strings.TrimSpace(newCfg.Notify.PostTimeout) ||
		oldCfg.Notify.Telegram != newCfg.Notify.Telegram {
		changed = append(changed, "notify")
		attrs = append(attrs,
			logx.String("notify.backend", strings.TrimSpace(newCfg.Notify.Backend)),
			logx.String("notify.timezone", strings.TrimSpace(newCfg.Notify.Timezone)),
			logx.Bool("notify.telegram_token_set", strings.TrimSpace(newCfg.Notify.Telegram.Token) != ""),
		)
	}

	if oldCfg.ReminderEnabled() != newCfg.ReminderEnabled() ||
		oldCfg.Reminder.SnoozeMinutes != newCfg.Reminder.SnoozeMinutes {
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.Bool("reminder.enabled", newCfg.ReminderEnabled()),
			logx.Int("reminder.snooze_minutes", newCfg.Reminder.SnoozeMinutes),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
