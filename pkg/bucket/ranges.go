package bucket

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidRange is returned when start is after end.
var ErrInvalidRange = errors.New("bucket: start must not be after end")

// GetBucketRange returns the [start, end] of the bucket containing dt.
func GetBucketRange(rule *Rule, dt time.Time, tz *time.Location) (Range, error) {
	start, err := FindBucketStart(rule, dt, tz)
	if err != nil {
		return Range{}, err
	}
	step, err := FindBucketStep(rule, start, tz)
	if err != nil {
		return Range{}, err
	}
	end, err := TZDeltaAdd(start, tz, step)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end.Add(-microsecond)}, nil
}

// FindBucketRanges enumerates every bucket intersecting [start, end]
// inclusive. The first bucket may begin before start; at least one bucket is
// always returned.
func FindBucketRanges(rule *Rule, start, end time.Time, tz *time.Location) ([]Range, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	bucketStart, err := FindBucketStart(rule, start, tz)
	if err != nil {
		return nil, err
	}
	step, err := FindBucketStep(rule, bucketStart, tz)
	if err != nil {
		return nil, err
	}

	bucketEndExclusive, err := TZDeltaAdd(bucketStart, tz, step)
	if err != nil {
		return nil, err
	}
	ranges := []Range{{Start: bucketStart, End: bucketEndExclusive.Add(-microsecond)}}

	for ranges[len(ranges)-1].End.Before(end) {
		bucketStart = bucketEndExclusive
		if rule.Range != nil {
			// Named rules: each bucket takes its own width (month length, DST day).
			bucketEndExclusive = rule.Range(bucketStart, tz).End.Add(microsecond)
		} else {
			bucketEndExclusive, err = TZDeltaAdd(bucketStart, tz, step)
			if err != nil {
				return nil, err
			}
		}
		ranges = append(ranges, Range{Start: bucketStart, End: bucketEndExclusive.Add(-microsecond)})
	}

	return ranges, nil
}

// LatestBucketRanges returns the n most recent bucket ranges ending with the
// bucket containing dt, in chronological (ascending) order.
func LatestBucketRanges(rule *Rule, dt time.Time, tz *time.Location, n int) ([]Range, error) {
	if n <= 0 {
		return nil, errors.New("bucket: num_buckets must be > 0")
	}

	start, err := FindBucketStart(rule, dt, tz)
	if err != nil {
		return nil, err
	}
	step, err := FindBucketStep(rule, start, tz)
	if err != nil {
		return nil, err
	}

	ranges := make([]Range, 0, n)
	end, err := TZDeltaAdd(start, tz, step)
	if err != nil {
		return nil, err
	}
	end = end.Add(-microsecond)

	for i := 0; i < n; i++ {
		ranges = append(ranges, Range{Start: start, End: end})
		end = start.Add(-microsecond)
		if rule.Range != nil {
			start = rule.Range(end, tz).Start
			continue
		}
		start, err = TZDeltaAdd(start, tz, step.Negate())
		if err != nil {
			return nil, err
		}
	}

	// reverse into ascending order
	for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	}
	return ranges, nil
}

// FindBucketNames maps FindBucketRanges through rule.Label.
func FindBucketNames(rule *Rule, start, end time.Time, tz *time.Location) ([]string, error) {
	ranges, err := FindBucketRanges(rule, start, end, tz)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ranges))
	for i, r := range ranges {
		names[i] = rule.Label(r.Start, tz)
	}
	return names, nil
}

// LatestBucketNames maps LatestBucketRanges through rule.Label.
func LatestBucketNames(rule *Rule, dt time.Time, tz *time.Location, n int) ([]string, error) {
	ranges, err := LatestBucketRanges(rule, dt, tz, n)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ranges))
	for i, r := range ranges {
		names[i] = rule.Label(r.Start, tz)
	}
	return names, nil
}
