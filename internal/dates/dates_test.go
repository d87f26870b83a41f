package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	for _, valid := range []string{"7d", "14d", "30d"} {
		r, err := ParseRange(valid)
		require.NoError(t, err)
		assert.Equal(t, RangeID(valid), r)
	}

	for _, invalid := range []string{"", "7", "90d", "14D", "last-week"} {
		_, err := ParseRange(invalid)
		assert.Error(t, err, "ParseRange(%q) should fail", invalid)
	}
}

func TestDaysFor(t *testing.T) {
	assert.Equal(t, 7, DaysFor(Range7d))
	assert.Equal(t, 14, DaysFor(Range14d))
	assert.Equal(t, 30, DaysFor(Range30d))
}

func TestResolveAt(t *testing.T) {
	now := time.Date(2025, time.March, 12, 15, 30, 45, 0, time.UTC)
	win := ResolveAt(now, Range7d)

	require.Len(t, win.Days, 7)
	assert.Equal(t, "2025-03-06", win.Days[0])
	assert.Equal(t, "2025-03-12", win.Days[6])
	assert.Equal(t, time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC), win.From)
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), win.To)
}

func TestResolveAtCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2025, time.March, 3, 1, 0, 0, 0, time.UTC)
	win := ResolveAt(now, Range14d)

	require.Len(t, win.Days, 14)
	assert.Equal(t, "2025-02-18", win.Days[0])
	assert.Equal(t, "2025-03-03", win.Days[13])
}

func TestDayKeyRoundTrip(t *testing.T) {
	ts := time.Date(2025, time.July, 4, 23, 59, 59, 0, time.UTC)
	key := DayKey(ts)
	assert.Equal(t, "2025-07-04", key)

	parsed, err := ParseDayKey(key)
	require.NoError(t, err)
	assert.Equal(t, StartOfDay(ts), parsed)
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	// 23:00 local on Jan 1 is already Jan 2 in UTC
	ts := time.Date(2025, time.January, 1, 23, 0, 0, 0, loc)
	assert.Equal(t, "2025-01-02", DayKey(ts))
}

func TestIsWeekend(t *testing.T) {
	assert.True(t, IsWeekend(time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)))  // Saturday
	assert.True(t, IsWeekend(time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)))  // Sunday
	assert.False(t, IsWeekend(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))) // Monday
}
