package ntplite

import (
	"testing"
	"time"
)

func TestIsLeapYear(t *testing.T) {
	tests := []struct {
		year int
		want bool
	}{
		{2000, true},
		{2004, true},
		{2024, true},
		{1900, false},
		{2021, false},
		{2100, false},
	}
	for _, test := range tests {
		if got := IsLeapYear(test.year); got != test.want {
			t.Errorf("IsLeapYear(%d) = %t, want %t", test.year, got, test.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		month time.Month
		year  int
		want  int
	}{
		{time.February, 2020, 29},
		{time.February, 2021, 28},
		{time.April, 2024, 30},
		{time.November, 2024, 30},
		{time.December, 2024, 31},
	}
	for _, test := range tests {
		if got := DaysInMonth(test.month, test.year); got != test.want {
			t.Errorf("DaysInMonth(%v, %d) = %d, want %d", test.month, test.year, got, test.want)
		}
	}
}

func TestTransitionTime(t *testing.T) {
	tests := []struct {
		name string
		year int
		rule DSTRule
		want time.Time
	}{
		{
			name: "second sunday of march",
			year: 2024,
			rule: DSTRule{Month: time.March, Week: 2, Weekday: time.Sunday, Hour: 2},
			want: time.Date(2024, time.March, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "first sunday of november",
			year: 2024,
			rule: DSTRule{Month: time.November, Week: 1, Weekday: time.Sunday, Hour: 2},
			want: time.Date(2024, time.November, 3, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "last sunday of march",
			year: 2024,
			rule: DSTRule{Month: time.March, Week: 5, Weekday: time.Sunday, Hour: 2},
			want: time.Date(2024, time.March, 31, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "last sunday of short february",
			year: 2021,
			rule: DSTRule{Month: time.February, Week: 5, Weekday: time.Sunday},
			want: time.Date(2021, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last saturday of leap february",
			year: 2020,
			rule: DSTRule{Month: time.February, Week: 5, Weekday: time.Saturday},
			want: time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "first monday of march",
			year: 2025,
			rule: DSTRule{Month: time.March, Week: 1, Weekday: time.Monday},
			want: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := transitionTime(test.year, test.rule); !got.Equal(test.want) {
				t.Errorf("transitionTime(%d, %+v) = %v, want %v", test.year, test.rule, got, test.want)
			}
		})
	}
}

func TestTransitionTimeAlwaysInsideMonth(t *testing.T) {
	rules := []DSTRule{
		{Month: time.March, Week: 2, Weekday: time.Sunday, Hour: 2},
		{Month: time.November, Week: 1, Weekday: time.Sunday, Hour: 2},
		{Month: time.October, Week: 5, Weekday: time.Sunday, Hour: 3},
		{Month: time.February, Week: 5, Weekday: time.Monday},
	}
	for year := 2000; year <= 2040; year++ {
		for _, rule := range rules {
			got := transitionTime(year, rule)
			if got.Month() != rule.Month {
				t.Fatalf("transitionTime(%d, %+v) landed in %v", year, rule, got.Month())
			}
			if got.Weekday() != rule.Weekday {
				t.Fatalf("transitionTime(%d, %+v) landed on %v", year, rule, got.Weekday())
			}
			if rule.Week < 5 {
				lo, hi := (rule.Week-1)*7+1, rule.Week*7
				if day := got.Day(); day < lo || day > hi {
					t.Fatalf("transitionTime(%d, %+v): day %d outside [%d, %d]", year, rule, day, lo, hi)
				}
			} else if got.Day() <= DaysInMonth(rule.Month, year)-7 {
				t.Fatalf("transitionTime(%d, %+v): day %d is not the last occurrence", year, rule, got.Day())
			}
		}
	}
}

func TestIsDSTActiveNorthern(t *testing.T) {
	zone := ZoneEasternUS()
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midwinter", time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC), false},
		{"midsummer", time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC), true},
		{"just before spring transition", time.Date(2024, time.March, 10, 1, 59, 59, 0, time.UTC), false},
		{"at spring transition", time.Date(2024, time.March, 10, 2, 0, 0, 0, time.UTC), true},
		{"just before fall transition", time.Date(2024, time.November, 3, 1, 59, 59, 0, time.UTC), true},
		{"at fall transition", time.Date(2024, time.November, 3, 2, 0, 0, 0, time.UTC), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := zone.IsDSTActive(test.at); got != test.want {
				t.Errorf("IsDSTActive(%v) = %t, want %t", test.at, got, test.want)
			}
		})
	}
}

func TestIsDSTActiveSouthernWrap(t *testing.T) {
	zone := TimeZone{
		Name:             "TEST-S",
		OffsetMinutes:    10 * 60,
		DST:              true,
		DSTStart:         DSTRule{Month: time.October, Week: 1, Weekday: time.Sunday, Hour: 2},
		DSTEnd:           DSTRule{Month: time.April, Week: 1, Weekday: time.Sunday, Hour: 3},
		DSTOffsetMinutes: 60,
	}
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"january is summer", time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), true},
		{"july is winter", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), false},
		{"november after start", time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), true},
		{"just before april end", time.Date(2024, time.April, 7, 2, 59, 59, 0, time.UTC), true},
		{"at april end", time.Date(2024, time.April, 7, 3, 0, 0, 0, time.UTC), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := zone.IsDSTActive(test.at); got != test.want {
				t.Errorf("IsDSTActive(%v) = %t, want %t", test.at, got, test.want)
			}
		})
	}
}

func TestIsDSTActiveDisabled(t *testing.T) {
	zone := ZoneUTC()
	if zone.IsDSTActive(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("DST reported active for a zone without a rule")
	}
}

func TestLocalTime(t *testing.T) {
	eastern := ZoneEasternUS()

	winter := time.Date(2024, time.January, 15, 17, 0, 0, 0, time.UTC)
	if got := eastern.LocalTime(winter); got.Hour() != 12 {
		t.Errorf("winter LocalTime(%v) = %v, want hour 12", winter, got)
	}

	summer := time.Date(2024, time.July, 1, 16, 0, 0, 0, time.UTC)
	if got := eastern.LocalTime(summer); got.Hour() != 12 {
		t.Errorf("summer LocalTime(%v) = %v, want hour 12", summer, got)
	}

	utc := ZoneUTC()
	if got := utc.LocalTime(winter); !got.Equal(winter) {
		t.Errorf("UTC LocalTime(%v) = %v, want identity", winter, got)
	}
}

func TestFormatEpoch(t *testing.T) {
	at := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	if got := FormatEpoch(at); got != "2024-01-02 03:04:05" {
		t.Errorf("FormatEpoch = %q", got)
	}
}
