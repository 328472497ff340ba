package bucket

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quarterHourLabel is an opaque custom bucket rule with no closed-form
// Range, the only way (via NewCustomRule) to force FindBucketStart and
// FindBucketStep onto the probe path instead of the named rules' direct
// formulas — the same shape a caller's own "quarter-hour" or
// "fiscal-quarter" rule would take (spec.md §4.1).
func quarterHourLabel(dt time.Time, tz *time.Location) string {
	local := dt.In(tz)
	floor := (local.Minute() / 15) * 15
	return fmt.Sprintf("%s:%02d", local.Format("2006-01-02T15"), floor)
}

func TestFindBucketStartProbesCustomRule(t *testing.T) {
	rule := NewCustomRule(quarterHourLabel)
	dt := time.Date(2024, 6, 15, 13, 37, 42, 0, time.UTC)

	start, err := FindBucketStart(rule, dt, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC), start)
	assert.Equal(t, rule.Label(dt, time.UTC), rule.Label(start, time.UTC))
}

func TestFindBucketStepProbesCustomRule(t *testing.T) {
	rule := NewCustomRule(quarterHourLabel)
	start := time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

	step, err := FindBucketStep(rule, start, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, step.Duration)
}

func TestFindBucketRangesCustomRule(t *testing.T) {
	rule := NewCustomRule(quarterHourLabel)
	start := time.Date(2024, 6, 15, 13, 5, 0, 0, time.UTC)
	end := time.Date(2024, 6, 15, 14, 20, 0, 0, time.UTC)

	ranges, err := FindBucketRanges(rule, start, end, time.UTC)
	require.NoError(t, err)
	require.True(t, len(ranges) >= 1)
	assert.False(t, ranges[0].Start.After(start))
	assert.False(t, ranges[len(ranges)-1].End.Before(end))

	for i := 1; i < len(ranges); i++ {
		assert.Equal(t, ranges[i-1].End.Add(microsecond), ranges[i].Start)
	}
}

func TestFindBucketStartFailsWhenLabelNeverChanges(t *testing.T) {
	constant := NewCustomRule(func(time.Time, *time.Location) string { return "always-the-same" })
	_, err := FindBucketStart(constant, time.Now(), time.UTC)
	assert.ErrorIs(t, err, ErrBucketNotDetected)
}
