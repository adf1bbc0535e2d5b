package storage

import (
	"fmt"
	"time"
)

// DayKeyLayout is the layout of day keys in the document.
const DayKeyLayout = "2006-01-02"

// DayKey returns the calendar-date key of t in t's location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey validates a day key.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", key, err)
	}
	return t, nil
}
