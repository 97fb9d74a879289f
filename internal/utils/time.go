package contextutils

import (
	"time"
)

// DateLayout is the calendar-date format used for every persisted date.
const DateLayout = "2006-01-02"

// LoadLocation resolves an IANA time zone name.
// Returns the location and the effective name ("UTC" on fallback).
func LoadLocation(timezone string) (*time.Location, string) {
	if timezone == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, timezone
}

// LocalDate formats t as a YYYY-MM-DD calendar date in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC so
// that arithmetic on it never crosses a DST transition.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, NewAppErrorWithCause(ErrorCodeInvalidFormat, SeverityWarn, "invalid date format", date, err)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from one date to another.
// It is negative when to precedes from.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// AddDays shifts a YYYY-MM-DD date by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// IsValidDate reports whether s is a YYYY-MM-DD calendar date.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
