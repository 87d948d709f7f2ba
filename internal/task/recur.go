package task

import "time"

// NextOccurrence computes the first instant strictly after base that matches
// the rule. The rule's frequency must not be FreqNone; time-of-day is carried
// over from base.
func NextOccurrence(r Rule, base time.Time) time.Time {
	if r.Interval < 1 {
		r.Interval = 1
	}
	switch r.Freq {
	case FreqDaily:
		return base.AddDate(0, 0, r.Interval)
	case FreqWeekly:
		return nextWeekly(r, base)
	case FreqMonthly:
		return nextMonthly(r, base)
	case FreqYearly:
		return base.AddDate(r.Interval, 0, 0)
	default:
		return base
	}
}

func nextWeekly(r Rule, base time.Time) time.Time {
	if len(r.Weekdays) == 0 {
		return base.AddDate(0, 0, 7)
	}
	set := map[time.Weekday]bool{}
	for _, wd := range r.Weekdays {
		d, err := TimeWeekday(wd)
		if err != nil {
			continue
		}
		set[d] = true
	}
	for i := 1; i <= 7; i++ {
		cand := base.AddDate(0, 0, i)
		if set[cand.Weekday()] {
			return cand
		}
	}
	return base.AddDate(0, 0, 7)
}

func nextMonthly(r Rule, base time.Time) time.Time {
	y, m, _ := base.Date()
	hh, mm, ss := base.Clock()
	// Month arithmetic avoids AddDate normalization (Jan 31 + 1 month must be
	// the clamped Feb day, not March 2/3).
	month := time.Date(y, m, 1, hh, mm, ss, base.Nanosecond(), base.Location()).AddDate(0, r.Interval, 0)

	if r.Ordinal != 0 && r.NthWeekday != "" {
		wd, err := TimeWeekday(r.NthWeekday)
		if err != nil {
			wd = base.Weekday()
		}
		return nthWeekdayOfMonth(month, r.Ordinal, wd)
	}

	day := r.MonthDay
	if day == 0 {
		day = base.Day()
	}
	return clampedDayOfMonth(month, day)
}

// nthWeekdayOfMonth returns the nth (1..4) or last (OrdinalLast) given
// weekday within month's month, preserving month's clock.
func nthWeekdayOfMonth(month time.Time, ordinal int, wd time.Weekday) time.Time {
	y, m, _ := month.Date()
	hh, mm, ss := month.Clock()
	first := time.Date(y, m, 1, hh, mm, ss, month.Nanosecond(), month.Location())

	if ordinal == OrdinalLast {
		last := first.AddDate(0, 1, -1)
		delta := int(last.Weekday()) - int(wd)
		if delta < 0 {
			delta += 7
		}
		return last.AddDate(0, 0, -delta)
	}

	delta := int(wd) - int(first.Weekday())
	if delta < 0 {
		delta += 7
	}
	return first.AddDate(0, 0, delta+(ordinal-1)*7)
}

// clampedDayOfMonth pins day to month's length (Jan 31 → Feb 28/29).
func clampedDayOfMonth(month time.Time, day int) time.Time {
	y, m, _ := month.Date()
	hh, mm, ss := month.Clock()
	lastDay := time.Date(y, m, 1, 0, 0, 0, 0, month.Location()).AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(y, m, day, hh, mm, ss, month.Nanosecond(), month.Location())
}

// Advance rewrites a recurring task's schedule fields for its next instance.
//
// The anchor depends on strategy: strict advances from the stored due date
// (falling back to startTime), fluid from the completion instant carrying the
// anchor's time-of-day. Returns ok=false when the task does not recur, in
// which case the caller should close it instead.
func Advance(t Task, completedAt time.Time) (Task, bool) {
	if t.Recurrence == FreqNone {
		return t, false
	}
	rule := ParseRuleAt(t.RecurrenceRule, completedAt)
	if rule.Freq == FreqNone {
		rule = DefaultRule(t.Recurrence, completedAt)
	}

	due, hasDue := ParseWhen(t.DueDate)
	start, hasStart := ParseWhen(t.StartTime)
	anchor := due
	hasAnchor := hasDue
	if !hasAnchor {
		anchor, hasAnchor = start, hasStart
	}
	if !hasAnchor {
		return t, false
	}

	base := anchor
	if t.RecurrenceStrategy == StrategyFluid {
		base = time.Date(
			completedAt.Year(), completedAt.Month(), completedAt.Day(),
			anchor.Hour(), anchor.Minute(), anchor.Second(), 0, anchor.Location(),
		)
	}

	next := NextOccurrence(rule, base)
	// A strict series that fell far behind still lands in the future.
	for !next.After(completedAt) {
		next = NextOccurrence(rule, next)
	}

	if hasDue {
		t.DueDate = FormatWhen(next)
		if hasStart {
			t.StartTime = FormatWhen(start.Add(next.Sub(due)))
		}
	} else {
		t.StartTime = FormatWhen(next)
	}
	return t, true
}
