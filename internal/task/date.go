package task

import (
	"strings"
	"time"
)

// Layouts with an explicit zone offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// Zone-less layouts resolve in local time to match how desktop editors
// write them.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseWhen parses a stored date-time value.
// Malformed or empty input yields ok=false, never an error.
func ParseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatWhen renders a time the way task fields store it.
func FormatWhen(t time.Time) string {
	return t.Format(time.RFC3339)
}
