package ntplite

import "time"

// DSTRule pins a daylight-saving transition to an ordinal weekday, such as
// "second Sunday of March at 02:00". Week 5 means the last occurrence in
// the month.
type DSTRule struct {
	Month   time.Month
	Week    int
	Weekday time.Weekday
	Hour    int
}

// TimeZone describes local-time presentation: a base offset from UTC plus
// an optional seasonal DST rule. When DST is false the transition fields
// are ignored.
type TimeZone struct {
	Name             string
	OffsetMinutes    int
	DST              bool
	DSTStart         DSTRule
	DSTEnd           DSTRule
	DSTOffsetMinutes int
}

func ZoneUTC() TimeZone {
	return TimeZone{Name: "UTC"}
}

func ZoneEasternUS() TimeZone {
	return TimeZone{
		Name:             "EST",
		OffsetMinutes:    -5 * 60,
		DST:              true,
		DSTStart:         DSTRule{Month: time.March, Week: 2, Weekday: time.Sunday, Hour: 2},
		DSTEnd:           DSTRule{Month: time.November, Week: 1, Weekday: time.Sunday, Hour: 2},
		DSTOffsetMinutes: 60,
	}
}

func ZonePacificUS() TimeZone {
	return TimeZone{
		Name:             "PST",
		OffsetMinutes:    -8 * 60,
		DST:              true,
		DSTStart:         DSTRule{Month: time.March, Week: 2, Weekday: time.Sunday, Hour: 2},
		DSTEnd:           DSTRule{Month: time.November, Week: 1, Weekday: time.Sunday, Hour: 2},
		DSTOffsetMinutes: 60,
	}
}

func ZoneCentralEuropean() TimeZone {
	return TimeZone{
		Name:             "CET",
		OffsetMinutes:    60,
		DST:              true,
		DSTStart:         DSTRule{Month: time.March, Week: 5, Weekday: time.Sunday, Hour: 2},
		DSTEnd:           DSTRule{Month: time.October, Week: 5, Weekday: time.Sunday, Hour: 3},
		DSTOffsetMinutes: 60,
	}
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func DaysInMonth(month time.Month, year int) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// transitionTime resolves an ordinal-weekday rule to a concrete instant
// within year. Week 5 walks back from past the end of the month until the
// day exists, yielding the last occurrence.
func transitionTime(year int, rule DSTRule) time.Time {
	firstWeekday := time.Date(year, rule.Month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	day := 1 + (int(rule.Weekday)-int(firstWeekday)+7)%7
	day += (rule.Week - 1) * 7
	for day > DaysInMonth(rule.Month, year) {
		day -= 7
	}
	return time.Date(year, rule.Month, day, rule.Hour, 0, 0, 0, time.UTC)
}

// IsDSTActive reports whether daylight saving applies at the given UTC
// instant. Rules whose start falls after their end wrap across the new
// year, the southern-hemisphere pattern.
func (tz TimeZone) IsDSTActive(utc time.Time) bool {
	if !tz.DST {
		return false
	}
	year := utc.Year()
	start := transitionTime(year, tz.DSTStart)
	end := transitionTime(year, tz.DSTEnd)

	if start.Before(end) {
		return !utc.Before(start) && utc.Before(end)
	}
	return !utc.Before(start) || utc.Before(end)
}

// LocalTime shifts a UTC instant by the zone's base offset plus any active
// DST offset.
func (tz TimeZone) LocalTime(utc time.Time) time.Time {
	offset := time.Duration(tz.OffsetMinutes) * time.Minute
	if tz.IsDSTActive(utc) {
		offset += time.Duration(tz.DSTOffsetMinutes) * time.Minute
	}
	return utc.Add(offset)
}

// FormatEpoch renders a time as "2006-01-02 15:04:05", freshly allocated
// per call.
func FormatEpoch(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
