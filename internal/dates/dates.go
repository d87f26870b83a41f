package dates

import (
	"fmt"
	"time"
)

// RangeID is a symbolic lookback window ending today.
type RangeID string

const (
	Range7d  RangeID = "7d"
	Range14d RangeID = "14d"
	Range30d RangeID = "30d"
)

const dayKeyLayout = "2006-01-02"

// ParseRange validates a range identifier at the input boundary. Unknown ids
// are a caller error, never handled inside the aggregation logic.
func ParseRange(s string) (RangeID, error) {
	switch RangeID(s) {
	case Range7d, Range14d, Range30d:
		return RangeID(s), nil
	}
	return "", fmt.Errorf("unknown range %q (want 7d, 14d or 30d)", s)
}

func DaysFor(r RangeID) int {
	switch r {
	case Range7d:
		return 7
	case Range14d:
		return 14
	default:
		return 30
	}
}

// Window is a resolved range: inclusive day boundaries plus the ordered
// YYYY-MM-DD key for every calendar day in between.
type Window struct {
	From time.Time
	To   time.Time
	Days []string
}

// Resolve maps a range id to the concrete day sequence ending today (UTC day
// boundary). The day count is exactly DaysFor(r).
func Resolve(r RangeID) Window {
	return ResolveAt(time.Now().UTC(), r)
}

// ResolveAt is Resolve anchored at an explicit instant.
func ResolveAt(now time.Time, r RangeID) Window {
	to := StartOfDay(now.UTC())
	from := to.AddDate(0, 0, -(DaysFor(r) - 1))
	days := make([]string, 0, DaysFor(r))
	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 0, 1) {
		days = append(days, DayKey(cursor))
	}
	return Window{From: from, To: to, Days: days}
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats an instant as its UTC calendar-day key.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// ParseDayKey inverts DayKey: UTC midnight of the given day.
func ParseDayKey(key string) (time.Time, error) {
	return time.Parse(dayKeyLayout, key)
}

func IsWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
