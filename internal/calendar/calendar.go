// Package calendar normalizes calendar dates.
//
// A date is represented as a time.Time at midnight UTC, which is how the MySQL
// driver returns DATE columns when parseTime is enabled.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire and URL format of a date.
const Layout = "2006-01-02"

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Parse parses a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	d, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// Format formats a date as YYYY-MM-DD.
func Format(d time.Time) string {
	return d.Format(Layout)
}

// AddDays returns d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// Clock returns today's date in a fixed location.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a Clock reading the wall clock in loc.
func NewClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// Today returns the current calendar date.
func (c Clock) Today() time.Time {
	return DateOf(c.Now(), c.Location)
}
