package task

import (
	"reflect"
	"testing"
	"time"
)

// A Wednesday.
var ruleRef = time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

func TestParseRuleEmptyAndMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "   ", "garbage", "FREQ=FORTNIGHTLY", "BYDAY=XX", ";;;=", "FREQ="} {
		got := ParseRuleAt(raw, ruleRef)
		if got.Freq != FreqNone {
			t.Fatalf("ParseRuleAt(%q).Freq = %q, want none", raw, got.Freq)
		}
	}
}

func TestParseRuleWeeklyDefaultsToReferenceWeekday(t *testing.T) {
	t.Parallel()
	got := ParseRuleAt("FREQ=WEEKLY", ruleRef)
	want := []Weekday{WeekdayWE}
	if !reflect.DeepEqual(got.Weekdays, want) {
		t.Fatalf("Weekdays = %v, want %v", got.Weekdays, want)
	}
}

func TestParseRuleMonthlyDefaultsToDayOne(t *testing.T) {
	t.Parallel()
	got := ParseRuleAt("FREQ=MONTHLY", ruleRef)
	if got.MonthDay != 1 || got.Ordinal != 0 {
		t.Fatalf("got MonthDay=%d Ordinal=%d, want day-1 date mode", got.MonthDay, got.Ordinal)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	t.Parallel()
	rules := []Rule{
		DefaultRule(FreqWeekly, ruleRef),
		DefaultRule(FreqMonthly, ruleRef),
		DefaultRule(FreqDaily, ruleRef),
		DefaultRule(FreqYearly, ruleRef),
		{Freq: FreqWeekly, Interval: 1, Weekdays: []Weekday{WeekdayMO, WeekdayWE, WeekdayFR}},
		{Freq: FreqWeekly, Interval: 1, Weekdays: []Weekday{WeekdaySU, WeekdaySA}},
		{Freq: FreqMonthly, Interval: 1, MonthDay: 15},
		{Freq: FreqMonthly, Interval: 3, MonthDay: 31},
		{Freq: FreqMonthly, Interval: 1, Ordinal: 2, NthWeekday: WeekdayTU},
		{Freq: FreqMonthly, Interval: 6, Ordinal: OrdinalLast, NthWeekday: WeekdayFR},
	}
	for _, r := range rules {
		got := ParseRuleAt(r.String(), ruleRef)
		if !reflect.DeepEqual(got, r) {
			t.Fatalf("round trip of %q: got %+v, want %+v", r.String(), got, r)
		}
	}
}

func TestParseRuleSerializations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "weekday set canonical order", raw: "FREQ=WEEKLY;BYDAY=FR,MO", want: "FREQ=WEEKLY;BYDAY=MO,FR"},
		{name: "duplicate weekdays dropped", raw: "FREQ=WEEKLY;BYDAY=MO,MO,TU", want: "FREQ=WEEKLY;BYDAY=MO,TU"},
		{name: "interval one omitted", raw: "FREQ=MONTHLY;INTERVAL=1;BYMONTHDAY=5", want: "FREQ=MONTHLY;BYMONTHDAY=5"},
		{name: "nth weekday", raw: "FREQ=MONTHLY;BYDAY=2TU", want: "FREQ=MONTHLY;BYDAY=2TU"},
		{name: "last weekday", raw: "FREQ=MONTHLY;BYDAY=-1FR", want: "FREQ=MONTHLY;BYDAY=-1FR"},
		{name: "bad interval ignored", raw: "FREQ=MONTHLY;INTERVAL=0;BYMONTHDAY=5", want: "FREQ=MONTHLY;BYMONTHDAY=5"},
		{name: "out of range monthday ignored", raw: "FREQ=MONTHLY;BYMONTHDAY=40", want: "FREQ=MONTHLY;BYMONTHDAY=1"},
		{name: "large interval accepted", raw: "FREQ=MONTHLY;INTERVAL=24;BYMONTHDAY=5", want: "FREQ=MONTHLY;INTERVAL=24;BYMONTHDAY=5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRuleAt(tt.raw, ruleRef).String()
			if got != tt.want {
				t.Fatalf("ParseRuleAt(%q).String() = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDefaultRuleDeterministic(t *testing.T) {
	t.Parallel()
	a := DefaultRule(FreqWeekly, ruleRef)
	b := DefaultRule(FreqWeekly, ruleRef)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("DefaultRule not deterministic: %+v vs %+v", a, b)
	}
	if a.String() != "FREQ=WEEKLY;BYDAY=WE" {
		t.Fatalf("unexpected weekly default %q", a.String())
	}
	if DefaultRule(FreqMonthly, ruleRef).String() != "FREQ=MONTHLY;BYMONTHDAY=1" {
		t.Fatalf("unexpected monthly default %q", DefaultRule(FreqMonthly, ruleRef).String())
	}
}
