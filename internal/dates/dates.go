// Package dates implements the calendar math the diary relies on:
// minute-precision timestamp parsing, local calendar-day keys, and the
// inclusive end-of-day extension used by range queries.
package dates

import (
	"fmt"
	"time"
)

// Layouts accepted for stored timestamps. DatetimeLayout is what the
// frontend's datetime-local input produces; the seconds variant tolerates
// hand-edited backups.
const (
	DatetimeLayout        = "2006-01-02T15:04"
	datetimeSecondsLayout = "2006-01-02T15:04:05"
	DayLayout             = "2006-01-02"
)

// Parse parses a stored minute-precision timestamp in loc.
func Parse(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DatetimeLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(datetimeSecondsLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse datetime %q: %w", value, err)
	}
	return t, nil
}

// ParseDay parses a YYYY-MM-DD calendar-day key in loc, returning the
// first instant of that day.
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse day %q: %w", day, err)
	}
	return t, nil
}

// DayKey projects t onto its calendar day in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// EndOfDay returns the last represented instant of the day containing t
// (23:59:59.999), so a record timestamped anywhere during the day falls
// inside an inclusive range ending on it.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Format renders t back into the stored minute-precision layout.
func Format(t time.Time) string {
	return t.Format(DatetimeLayout)
}
