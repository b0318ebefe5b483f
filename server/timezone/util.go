// Package timezone provides wall-clock helpers for calendar computations.
//
// The calendar core never converts between zones on its own: a caller picks the
// location once (from the query range or the profile) and every day boundary,
// date key and label is derived in that location.
package timezone

import (
	"fmt"
	"time"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC

	// Local is the local timezone
	Local = time.Local
)

const (
	// DateKeyLayout is the ISO date layout used for per-day buckets.
	DateKeyLayout = "2006-01-02"

	// SlotStartLayout renders the start of a free slot, e.g. "Mon, Jan 2, 3:04 PM".
	SlotStartLayout = "Mon, Jan 2, 3:04 PM"

	// SlotEndLayout renders the end of a free slot, e.g. "4:30 PM".
	SlotEndLayout = "3:04 PM"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// "Local" maps to the process location. If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", "UTC":
		return UTC, nil
	case "Local":
		return Local, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// AtHour returns hour:00 on the calendar day of day, in day's location.
// Hour 24 yields midnight of the following day.
func AtHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// AddDays moves a wall-clock date by n calendar days, staying correct across DST shifts.
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, day.Hour(), day.Minute(), day.Second(), day.Nanosecond(), day.Location())
}

// SameDay reports whether a and b fall on the same calendar date in tz.
func SameDay(a, b time.Time, tz *time.Location) bool {
	if tz == nil {
		tz = UTC
	}
	ay, am, ad := a.In(tz).Date()
	by, bm, bd := b.In(tz).Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats t as an ISO date (yyyy-MM-dd) in tz.
func DateKey(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format(DateKeyLayout)
}

// FormatSlotLabel renders a free slot for display.
// Format: "Mon, Jan 2, 10:00 AM - 11:30 AM"
func FormatSlotLabel(start, end time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return fmt.Sprintf("%s - %s", start.In(tz).Format(SlotStartLayout), end.In(tz).Format(SlotEndLayout))
}
