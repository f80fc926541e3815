package utils

import "time"

// Day bucketing happens in a fixed reference zone (UTC) so that rollover and
// daily listings agree on where a calendar day starts no matter which host or
// client produced the timestamp.

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// NoonOfDay is where target dates are anchored when stored, keeping them
// safely inside their day bucket regardless of small clock drift.
func NoonOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// DayWindow returns the inclusive [start, end] bounds of t's calendar day.
func DayWindow(t time.Time) (time.Time, time.Time) {
	return StartOfDay(t), EndOfDay(t)
}
