package utils

import (
	"fmt"
	"strings"
	"time"
)

// Constants
const (
	DATE_LAYOUT = "2006-01-02"
)

// DateOf truncates t to its calendar day, keeping the day as seen in t's own location.
// The result is midnight UTC so dates from different zones compare by day only.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// ParseDate accepts a plain date (2006-01-02) or an RFC3339 timestamp and returns its calendar day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DATE_LAYOUT, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q: expected %s", s, DATE_LAYOUT)
	}
	return DateOf(t), nil
}

// FormatDate renders the calendar day of t
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DATE_LAYOUT)
}
