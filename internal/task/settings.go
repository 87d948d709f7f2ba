package task

import (
	"strconv"
	"strings"
)

// Settings is the persisted user-preferences record. Optional fields are
// pointers so an omitted value can be told apart from an explicit false.
type Settings struct {
	NotificationsEnabled *bool  `json:"notificationsEnabled,omitempty"`
	DigestMorningEnabled *bool  `json:"dailyDigestMorningEnabled,omitempty"`
	DigestEveningEnabled *bool  `json:"dailyDigestEveningEnabled,omitempty"`
	DigestMorningTime    string `json:"dailyDigestMorningTime,omitempty"`
	DigestEveningTime    string `json:"dailyDigestEveningTime,omitempty"`
	Language             string `json:"language,omitempty"`
}

// NotifySettings is Settings with every default resolved. All consumers
// (per-task scheduling and the digest) read this normalized form so default
// handling lives in exactly one place.
type NotifySettings struct {
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	MorningEnabled       bool   `json:"morningEnabled"`
	EveningEnabled       bool   `json:"eveningEnabled"`
	MorningTime          string `json:"morningTime"`
	EveningTime          string `json:"eveningTime"`
	Language             string `json:"language"`
}

const (
	DefaultMorningTime = "09:00"
	DefaultEveningTime = "20:00"
)

// ParseTimeOfDay parses an "HH:MM" string. Malformed or out-of-range input
// yields the fallback, never an error.
func ParseTimeOfDay(value string, fallbackHour, fallbackMinute int) (hour, minute int) {
	h, m, ok := splitHHMM(value)
	if !ok {
		return fallbackHour, fallbackMinute
	}
	return h, m
}

func splitHHMM(value string) (hour, minute int, ok bool) {
	raw, rest, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Normalized resolves all defaults: notifications on unless explicitly off,
// digests off unless explicitly on, 09:00/20:00 digest times, language "en".
func (s Settings) Normalized() NotifySettings {
	n := NotifySettings{
		NotificationsEnabled: s.NotificationsEnabled == nil || *s.NotificationsEnabled,
		MorningEnabled:       s.DigestMorningEnabled != nil && *s.DigestMorningEnabled,
		EveningEnabled:       s.DigestEveningEnabled != nil && *s.DigestEveningEnabled,
		MorningTime:          strings.TrimSpace(s.DigestMorningTime),
		EveningTime:          strings.TrimSpace(s.DigestEveningTime),
		Language:             strings.TrimSpace(s.Language),
	}
	if n.MorningTime == "" {
		n.MorningTime = DefaultMorningTime
	}
	if n.EveningTime == "" {
		n.EveningTime = DefaultEveningTime
	}
	if n.Language == "" {
		n.Language = "en"
	}
	return n
}
