package task

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency is the coarse recurrence tag.
type Frequency string

const (
	FreqNone    Frequency = ""
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Weekday codes follow the iCalendar two-letter convention.
type Weekday string

const (
	WeekdaySU Weekday = "SU"
	WeekdayMO Weekday = "MO"
	WeekdayTU Weekday = "TU"
	WeekdayWE Weekday = "WE"
	WeekdayTH Weekday = "TH"
	WeekdayFR Weekday = "FR"
	WeekdaySA Weekday = "SA"
)

// WeekdayOrder is the canonical SU..SA ordering used for serialization.
var WeekdayOrder = []Weekday{WeekdaySU, WeekdayMO, WeekdayTU, WeekdayWE, WeekdayTH, WeekdayFR, WeekdaySA}

// OrdinalLast selects the last matching weekday of a month.
const OrdinalLast = -1

// Rule is the structured form of a recurrence rule string.
//
// Shapes the editors produce:
//   - weekly:  Weekdays is the repeat-on set.
//   - monthly date mode:      MonthDay 1..31, Ordinal == 0.
//   - monthly nth-weekday:    Ordinal 1..4 or OrdinalLast, NthWeekday set.
//
// Interval is "repeat every N months" for monthly rules; parsing accepts any
// positive integer even though the editor caps it at 12.
type Rule struct {
	Freq       Frequency
	Interval   int
	Weekdays   []Weekday
	MonthDay   int
	Ordinal    int
	NthWeekday Weekday
}

// ParseRule parses a rule string with time.Now as the reference for defaults.
func ParseRule(s string) Rule { return ParseRuleAt(s, time.Now()) }

// ParseRuleAt parses a compact FREQ=...;KEY=value rule string.
//
// It never fails: empty or malformed input falls back to a well-defined
// default (FreqNone for unrecognized frequency; weekly with the reference
// weekday when the weekday set is missing; monthly on day 1 when neither a
// day-of-month nor an nth-weekday survives parsing). Callers detect "no
// explicit recurrence" via Freq == FreqNone.
func ParseRuleAt(s string, ref time.Time) Rule {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rule{Freq: FreqNone}
	}

	r := Rule{Interval: 1}
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		switch k {
		case "FREQ":
			r.Freq = parseFreq(v)
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil && n >= 1 {
				r.Interval = n
			}
		case "BYDAY":
			parseByDay(&r, v)
		case "BYMONTHDAY":
			if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 31 {
				r.MonthDay = n
			}
		}
	}

	if r.Freq == FreqNone {
		return Rule{Freq: FreqNone}
	}
	normalizeRule(&r, ref)
	return r
}

// DefaultRule builds the deterministic default rule for a frequency at a
// reference time: weekly repeats on the reference weekday, monthly on day 1.
func DefaultRule(freq Frequency, ref time.Time) Rule {
	r := Rule{Freq: freq, Interval: 1}
	normalizeRule(&r, ref)
	return r
}

// String serializes the rule. ParseRuleAt(r.String(), ref) == r for every
// shape the editors can produce. FreqNone serializes to "".
func (r Rule) String() string {
	if r.Freq == FreqNone {
		return ""
	}
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(strings.ToUpper(string(r.Freq)))
	if r.Interval > 1 {
		b.WriteString(";INTERVAL=")
		b.WriteString(strconv.Itoa(r.Interval))
	}
	switch r.Freq {
	case FreqWeekly:
		if len(r.Weekdays) > 0 {
			codes := make([]string, len(r.Weekdays))
			for i, wd := range r.Weekdays {
				codes[i] = string(wd)
			}
			b.WriteString(";BYDAY=")
			b.WriteString(strings.Join(codes, ","))
		}
	case FreqMonthly:
		if r.Ordinal != 0 && r.NthWeekday != "" {
			b.WriteString(";BYDAY=")
			b.WriteString(strconv.Itoa(r.Ordinal))
			b.WriteString(string(r.NthWeekday))
		} else if r.MonthDay > 0 {
			b.WriteString(";BYMONTHDAY=")
			b.WriteString(strconv.Itoa(r.MonthDay))
		}
	}
	return b.String()
}

func parseFreq(v string) Frequency {
	switch strings.ToUpper(v) {
	case "DAILY":
		return FreqDaily
	case "WEEKLY":
		return FreqWeekly
	case "MONTHLY":
		return FreqMonthly
	case "YEARLY":
		return FreqYearly
	default:
		return FreqNone
	}
}

func parseByDay(r *Rule, v string) {
	for _, tok := range strings.Split(v, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		// An ordinal prefix ("2TU", "-1FR") selects the nth weekday of the
		// month; a bare code joins the weekly repeat-on set.
		if code, ok := parseWeekdayCode(tok); ok {
			r.Weekdays = append(r.Weekdays, code)
			continue
		}
		if len(tok) < 3 {
			continue
		}
		code, ok := parseWeekdayCode(tok[len(tok)-2:])
		if !ok {
			continue
		}
		n, err := strconv.Atoi(tok[:len(tok)-2])
		if err != nil {
			continue
		}
		if (n >= 1 && n <= 4) || n == OrdinalLast {
			r.Ordinal = n
			r.NthWeekday = code
		}
	}
}

func parseWeekdayCode(s string) (Weekday, bool) {
	for _, wd := range WeekdayOrder {
		if s == string(wd) {
			return wd, true
		}
	}
	return "", false
}

// normalizeRule fills per-frequency defaults and canonicalizes field use so
// that parse/serialize round-trip exactly.
func normalizeRule(r *Rule, ref time.Time) {
	if r.Interval < 1 {
		r.Interval = 1
	}
	switch r.Freq {
	case FreqWeekly:
		r.MonthDay = 0
		r.Ordinal = 0
		r.NthWeekday = ""
		if len(r.Weekdays) == 0 {
			r.Weekdays = []Weekday{WeekdayFromTime(ref.Weekday())}
		}
		r.Weekdays = canonicalWeekdays(r.Weekdays)
	case FreqMonthly:
		r.Weekdays = nil
		if r.Ordinal != 0 && r.NthWeekday != "" {
			r.MonthDay = 0
		} else {
			r.Ordinal = 0
			r.NthWeekday = ""
			if r.MonthDay == 0 {
				r.MonthDay = 1
			}
		}
	default:
		r.Weekdays = nil
		r.MonthDay = 0
		r.Ordinal = 0
		r.NthWeekday = ""
	}
}

// canonicalWeekdays sorts to SU..SA order and drops duplicates.
func canonicalWeekdays(in []Weekday) []Weekday {
	seen := map[Weekday]bool{}
	out := make([]Weekday, 0, len(in))
	for _, wd := range in {
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return weekdayIndex(out[i]) < weekdayIndex(out[j])
	})
	return out
}

func weekdayIndex(wd Weekday) int {
	for i, w := range WeekdayOrder {
		if w == wd {
			return i
		}
	}
	return len(WeekdayOrder)
}

// WeekdayFromTime maps a time.Weekday to its two-letter code.
func WeekdayFromTime(d time.Weekday) Weekday {
	return WeekdayOrder[int(d)%7]
}

// TimeWeekday maps a two-letter code back to time.Weekday.
func TimeWeekday(wd Weekday) (time.Weekday, error) {
	idx := weekdayIndex(wd)
	if idx >= len(WeekdayOrder) {
		return 0, fmt.Errorf("unknown weekday code %q", wd)
	}
	return time.Weekday(idx), nil
}
