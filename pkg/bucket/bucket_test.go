package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNamedRuleLabels(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")
	dt := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-06-15T09", Hourly.Label(dt, ny))
	assert.Equal(t, "2024-06-15", Daily.Label(dt, ny))
	assert.Equal(t, "2024-06", Monthly.Label(dt, ny))
}

func TestWeeklyLabelMondayStart(t *testing.T) {
	utc := time.UTC
	// 2024-01-01 is itself a Monday, so it starts week 01, not week 00;
	// the "00" rule only applies to days before the year's first Monday.
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, utc)
	assert.Equal(t, "2024w01", Weekly.Label(monday, utc))

	// Control: 2023-01-01 is a Sunday, so it falls before 2023's first
	// Monday (2023-01-02) and is correctly week 00.
	sunday := time.Date(2023, 1, 1, 0, 0, 0, 0, utc)
	assert.Equal(t, "2023w00", Weekly.Label(sunday, utc))
}

func TestMonthlyBucketStability(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")

	jan1 := Monthly.Label(time.Date(2021, 1, 1, 5, 0, 0, 0, time.UTC), ny)
	jan10 := Monthly.Label(time.Date(2021, 1, 10, 5, 0, 0, 0, time.UTC), ny)
	jan20 := Monthly.Label(time.Date(2021, 1, 20, 5, 0, 0, 0, time.UTC), ny)
	feb1 := Monthly.Label(time.Date(2021, 2, 1, 5, 0, 0, 0, time.UTC), ny)

	assert.Equal(t, jan1, jan10)
	assert.Equal(t, jan1, jan20)
	assert.NotEqual(t, jan1, feb1)
}

func TestGetDailyRangeEndIsOneMicrosecondBeforeNextStart(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")
	dt := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) // DST spring-forward day in US

	r := GetDailyRange(dt, ny)
	nextStart := GetDailyRange(r.End.Add(time.Microsecond), ny).Start
	assert.True(t, r.End.Before(nextStart))
	assert.Equal(t, r.End.Add(time.Microsecond), nextStart)
}

func TestGetMonthlyRangeHandlesVariableMonthLength(t *testing.T) {
	utc := time.UTC
	feb := GetMonthlyRange(time.Date(2023, 2, 10, 0, 0, 0, 0, utc), utc)
	mar := GetMonthlyRange(time.Date(2023, 3, 1, 0, 0, 0, 0, utc), utc)
	assert.Equal(t, mar.Start, feb.End.Add(time.Microsecond))
}

func TestTZDeltaAddRejectsMixedDelta(t *testing.T) {
	_, err := TZDeltaAdd(time.Now(), time.UTC, Delta{Days: 1, Duration: time.Hour})
	assert.ErrorIs(t, err, ErrInvalidDelta)
}

func TestTZDeltaAddCalendarAdvancesLocalMidnight(t *testing.T) {
	ny := mustLoadLocation(t, "America/New_York")
	dt := time.Date(2024, 6, 15, 18, 45, 0, 0, time.UTC)
	next, err := TZDeltaAdd(dt, ny, Delta{Days: 1})
	require.NoError(t, err)
	local := next.In(ny)
	assert.Equal(t, 0, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.Equal(t, 16, local.Day())
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	rule, err := reg.Lookup("monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, rule)

	rule, err = reg.Lookup("")
	require.NoError(t, err)
	assert.Nil(t, rule)

	_, err = reg.Lookup("fortnightly")
	assert.Error(t, err)
}
