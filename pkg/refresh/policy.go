// Package refresh implements the stale-while-revalidate decision (C5):
// given a cached entry's refresh/updated bookkeeping, decide whether a
// background recompute should be scheduled.
package refresh

import (
	"time"

	"github.com/grafana/cacheupdater/pkg/bucket"
)

// Strategy selects which cached buckets are eligible for background
// refresh.
type Strategy string

const (
	// All makes every cached bucket eligible for refresh.
	All Strategy = "all"
	// Latest restricts refresh to the current (unsettled) bucket, plus any
	// past bucket that has not yet been refreshed after its closing instant.
	Latest Strategy = "latest"
)

// Input bundles everything ShouldRefresh needs to decide. RefreshAt
// (*int64) and UpdatedAt (*time.Time) are paired with Known flags so
// "unknown, go fetch it" can be distinguished from "known to be absent".
type Input struct {
	TimeoutRefresh *time.Duration
	Strategy       Strategy

	Rule *bucket.Rule
	DT   time.Time
	TZ   *time.Location

	// DefaultTimestamp produces "now" in the caller's terms, used by the
	// Latest strategy to find the currently-live bucket label.
	DefaultTimestamp func() time.Time

	RefreshAt      *int64 // unix seconds; used only when RefreshAtKnown, nil then means absent
	RefreshAtKnown bool
	UpdatedAt      *time.Time
	UpdatedAtKnown bool

	// FetchRefreshAt/FetchUpdatedAt lazily resolve RefreshAt/UpdatedAt when
	// they are not already known, mirroring the source's GET-on-demand.
	FetchRefreshAt func() (*int64, error)
	FetchUpdatedAt func() (*time.Time, error)

	Now func() time.Time
}

// ShouldRefresh runs the exact state machine from the source's
// should_refresh: a null timeout_refresh disables refresh entirely; a
// refresh_at in the future defers; the "latest" strategy additionally
// short-circuits buckets other than the current one that either have not
// started yet or have already been refreshed past their own end.
func ShouldRefresh(in Input) (bool, error) {
	if in.TimeoutRefresh == nil {
		return false, nil
	}

	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	nowTime := now()

	refreshAt := in.RefreshAt
	if !in.RefreshAtKnown {
		fetched, err := in.FetchRefreshAt()
		if err != nil {
			return false, err
		}
		refreshAt = fetched
	}
	if refreshAt != nil && float64(*refreshAt) > float64(nowTime.Unix()) {
		return false, nil
	}

	if in.Strategy == Latest {
		currentLabel := in.Rule.Label(in.DT, in.TZ)
		latestLabel := in.Rule.Label(in.DefaultTimestamp(), in.TZ)
		if currentLabel != latestLabel {
			bucketRange, err := bucket.GetBucketRange(in.Rule, in.DT, in.TZ)
			if err != nil {
				return false, err
			}
			if bucketRange.Start.After(nowTime) {
				return false, nil
			}

			updatedAt := in.UpdatedAt
			if !in.UpdatedAtKnown {
				fetched, err := in.FetchUpdatedAt()
				if err != nil {
					return false, err
				}
				updatedAt = fetched
			}
			if updatedAt != nil && updatedAt.After(bucketRange.End) {
				return false, nil
			}
		}
	}

	return true, nil
}
