package services

import (
	"time"

	contextutils "learnverse/internal/utils"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time { return c.T }

// Calendar turns the clock into calendar dates in the configured time zone
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// NewCalendar creates a calendar; an unknown time zone falls back to UTC
func NewCalendar(clock Clock, timezone string) *Calendar {
	if clock == nil {
		clock = SystemClock{}
	}
	loc, _ := contextutils.LoadLocation(timezone)
	return &Calendar{clock: clock, loc: loc}
}

// Now returns the current instant
func (c *Calendar) Now() time.Time {
	return c.clock.Now()
}

// Today returns the current date as YYYY-MM-DD
func (c *Calendar) Today() string {
	return contextutils.LocalDate(c.clock.Now(), c.loc)
}

// Date returns the calendar date of t
func (c *Calendar) Date(t time.Time) string {
	return contextutils.LocalDate(t, c.loc)
}

// Location returns the calendar's time zone
func (c *Calendar) Location() *time.Location {
	return c.loc
}
