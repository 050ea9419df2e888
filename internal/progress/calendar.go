// Package progress holds the tracked-day calendar and the read model that
// turns raw progress rows into member and team percentages.
package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDay is returned for dates that cannot be parsed.
var ErrInvalidDay = errors.New("invalid date")

// Calendar is the program's range of tracked weekdays.
type Calendar struct {
	Start    time.Time
	End      time.Time
	Location *time.Location

	days []time.Time
}

// NewCalendar builds a calendar from start to end inclusive, both taken as calendar days in loc.
func NewCalendar(start, end time.Time, loc *time.Location) (*Calendar, error) {
	if loc == nil {
		loc = time.Local
	}
	start, end = Normalize(start, loc), Normalize(end, loc)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	c := &Calendar{Start: start, End: end, Location: loc}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			c.days = append(c.days, d)
		}
	}
	return c, nil
}

// TrackedDays returns the weekdays (Mon-Fri) of the program, each at 00:00 in Location.
func (c *Calendar) TrackedDays() []time.Time {
	out := make([]time.Time, len(c.days))
	copy(out, c.days)
	return out
}

// Len is the number of tracked days.
func (c *Calendar) Len() int {
	return len(c.days)
}

// Index returns the position of t's calendar day among the tracked days, or -1.
func (c *Calendar) Index(t time.Time) int {
	d := Normalize(t, c.Location)
	for i, day := range c.days {
		if day.Equal(d) {
			return i
		}
	}
	return -1
}

// TodayIndex is Index(now), -1 when today is not a tracked day.
func (c *Calendar) TodayIndex(now time.Time) int {
	return c.Index(now)
}

// Normalize truncates t to the start of its calendar day in loc.
func Normalize(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

var dayLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// ParseDay accepts an ISO-8601 date or timestamp and returns the start of its
// calendar day in loc. Timestamps without an offset are read in loc.
func ParseDay(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDay)
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return Normalize(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, raw)
}
