// utils/dates.go
package utils

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return BeginningOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// BeginningOfWeek returns Monday 00:00 of t's week
func BeginningOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return BeginningOfDay(t).AddDate(0, 0, -offset)
}

func BeginningOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

// ParseClock parses "HH:MM" into hours and minutes
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// AtClock returns day at the given "HH:MM" in day's location
func AtClock(day time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}

// ParseDate parses a YYYY-MM-DD date in the local zone
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// WeekdayKey is the lowercase weekday name used in schedule JSON
func WeekdayKey(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}
