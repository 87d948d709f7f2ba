// Package i18n holds the user-facing strings rendered into notifications.
package i18n

import "strings"

type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

var translations = map[Language]map[string]string{
	LangEN: {
		"digest.morningTitle": "Good morning",
		"digest.morningBody":  "Review today's tasks and plan your day.",
		"digest.eveningTitle": "Evening review",
		"digest.eveningBody":  "Check off what you finished and prepare tomorrow.",
		"action.snooze10":     "Snooze 10m",
		"action.open":         "Open",
	},
	LangZH: {
		"digest.morningTitle": "早上好",
		"digest.morningBody":  "查看今天的任务，规划你的一天。",
		"digest.eveningTitle": "晚间回顾",
		"digest.eveningBody":  "勾掉已完成的任务，为明天做准备。",
		"action.snooze10":     "稍后提醒（10分钟）",
		"action.open":         "打开",
	},
}

// Normalize maps a stored language value to a supported Language,
// defaulting to English.
func Normalize(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangZH:
		return LangZH
	default:
		return LangEN
	}
}

// T resolves a key for a language, falling back to English, then to the key
// itself so a missing entry stays visible rather than blank.
func T(lang Language, key string) string {
	if m, ok := translations[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[LangEN][key]; ok {
		return v
	}
	return key
}
