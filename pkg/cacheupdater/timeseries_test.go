package cacheupdater

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/cacheupdater/pkg/bucket"
)

// TestGetTimeseriesBulkFetch is scenario S5: missing buckets are computed,
// present buckets are served from cache, and results come back in order.
func TestGetTimeseriesBulkFetch(t *testing.T) {
	s := newTestSettings(t)
	var computed []string

	reg, err := Register(s, Options{
		LookupName:       "series",
		ArgNames:         []string{"account_id", "dt", "tz"},
		BucketRule:       bucket.Monthly,
		TimestampArgName: "dt",
		TimezoneArgName:  "tz",
	}, func(ctx context.Context, args Args) (any, error) {
		dt := args["dt"].(time.Time)
		label := bucket.Monthly.Label(dt, time.UTC)
		computed = append(computed, label)
		return label, nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	// Prime February by calling it directly first.
	_, err = reg.Call(ctx, Args{
		"account_id": 1,
		"dt":         time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		"tz":         time.UTC,
	}, CallOptions{})
	require.NoError(t, err)
	computed = nil

	points, err := reg.GetTimeseries(ctx,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Args{"account_id": 1, "tz": time.UTC},
	)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01", points[0].Value)
	assert.Equal(t, "2024-02", points[1].Value)
	assert.Equal(t, "2024-03", points[2].Value)

	// February was already cached by the priming call; only Jan and March
	// should have been computed by the bulk fetch.
	assert.ElementsMatch(t, []string{"2024-01", "2024-03"}, computed)
}

// TestStaleWhileRevalidate is scenario S3: a stale hit returns the old
// value immediately and schedules a background recompute.
func TestStaleWhileRevalidate(t *testing.T) {
	s := newTestSettings(t)
	var calls int32
	timeoutRefresh := 50 * time.Millisecond

	reg, err := Register(s, Options{
		LookupName:     "stale",
		ArgNames:       []string{"k"},
		TimeoutRefresh: &timeoutRefresh,
	}, func(ctx context.Context, args Args) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return n, nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	v1, err := reg.Call(ctx, Args{"k": "x"}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), v1)

	time.Sleep(70 * time.Millisecond)

	// Still the stale value, refresh scheduled in background. v2 travels
	// through the codec's interface{} decode path (v1 did not), so this
	// also confirms the int32 type itself survives the cache round-trip.
	v2, err := reg.Call(ctx, Args{"k": "x"}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), v2)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, 5*time.Millisecond)
}

// TestGetTimeseriesCustomBucketRuleProbes registers a computation with an
// opaque custom bucket rule (bucket.NewCustomRule, no closed-form Range) and
// drives GetTimeseries across a boundary, forcing bucket.FindBucketStart and
// bucket.FindBucketStep onto their probe path rather than a named rule's
// direct formula.
func TestGetTimeseriesCustomBucketRuleProbes(t *testing.T) {
	s := newTestSettings(t)

	quarterHour := bucket.NewCustomRule(func(dt time.Time, tz *time.Location) string {
		local := dt.In(tz)
		floor := (local.Minute() / 15) * 15
		return fmt.Sprintf("%s:%02d", local.Format("2006-01-02T15"), floor)
	})

	reg, err := Register(s, Options{
		LookupName:       "quarter-series",
		ArgNames:         []string{"dt", "tz"},
		BucketRule:       quarterHour,
		TimestampArgName: "dt",
		TimezoneArgName:  "tz",
	}, func(ctx context.Context, args Args) (any, error) {
		dt := args["dt"].(time.Time)
		return quarterHour.Label(dt, time.UTC), nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Date(2024, 6, 15, 13, 5, 0, 0, time.UTC)
	end := time.Date(2024, 6, 15, 14, 20, 0, 0, time.UTC)

	points, err := reg.GetTimeseries(ctx, start, end, Args{"tz": time.UTC})
	require.NoError(t, err)
	require.True(t, len(points) >= 1)
	assert.False(t, points[0].BucketStart.After(start))
	assert.False(t, points[len(points)-1].BucketStart.Add(15*time.Minute).Before(end))
}
