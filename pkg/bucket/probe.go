package bucket

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrBucketNotDetected is returned when a custom bucket function never
// changes its label within the bounded probe windows.
var ErrBucketNotDetected = errors.New("bucket: could not detect a label change for this bucket rule")

// probe step ladder: (delta, how many steps to search at this resolution).
var startLadder = []struct {
	delta Delta
	steps int
}{
	{durationDelta(-time.Second), 30},
	{durationDelta(-time.Minute), 30},
	{durationDelta(-time.Hour), 12},
	{dayDelta(-1), 15},
	{monthDelta(-1), 6},
	{yearDelta(-1), 10},
}

var stepLadder = []struct {
	unit  func(i int) Delta
	steps int
}{
	{func(i int) Delta { return durationDelta(time.Duration(i) * time.Second) }, 30},
	{func(i int) Delta { return durationDelta(time.Duration(i) * time.Minute) }, 30},
	{func(i int) Delta { return durationDelta(time.Duration(i) * time.Hour) }, 12},
	{dayDelta, 15},
	{monthDelta, 6},
	{yearDelta, 10},
}

// checkBucketDelta reports whether applying delta to dt moves it into a
// different bucket than dt's own and applying delta*2 moves it into yet
// another bucket than the delta-shifted one, confirming the move is a real
// bucket edge and not a one-off label hiccup.
func checkBucketDelta(rule *Rule, dt time.Time, tz *time.Location, delta Delta) (bool, error) {
	startLabel := rule.Label(dt, tz)
	shifted, err := TZDeltaAdd(dt, tz, delta)
	if err != nil {
		return false, err
	}
	previousLabel := rule.Label(shifted, tz)
	if previousLabel == startLabel {
		return false, nil
	}
	doubled, err := TZDeltaAdd(dt, tz, doubleDelta(delta))
	if err != nil {
		return false, err
	}
	return rule.Label(doubled, tz) != previousLabel, nil
}

func doubleDelta(d Delta) Delta {
	if d.Duration != 0 {
		return Delta{Duration: d.Duration * 2}
	}
	return Delta{Years: d.Years * 2, Months: d.Months * 2, Days: d.Days * 2}
}

// findBucketEdge walks dt backward/forward by delta, one step at a time, up
// to checkRange steps, looking for the point at which the label changes;
// once found it walks further in the same direction while the label holds
// constant and returns the last dt inside the original (edge) bucket... in
// practice, for FindBucketStart the direction is backward and it returns the
// start of the bucket containing the original dt.
func findBucketEdge(rule *Rule, dt time.Time, tz *time.Location, delta Delta, checkRange int) (time.Time, bool, error) {
	for i := 0; i < checkRange; i++ {
		stepDelta := scaleDelta(delta, i+1)
		changed, err := checkBucketDelta(rule, dt, tz, stepDelta)
		if err != nil {
			return time.Time{}, false, err
		}
		if !changed {
			continue
		}
		edge := dt
		edgeLabel := rule.Label(edge, tz)
		for {
			next, err := TZDeltaAdd(edge, tz, delta)
			if err != nil {
				return time.Time{}, false, err
			}
			if rule.Label(next, tz) != edgeLabel {
				break
			}
			edge = next
		}
		return edge, true, nil
	}
	return time.Time{}, false, nil
}

func scaleDelta(d Delta, n int) Delta {
	if d.Duration != 0 {
		return Delta{Duration: d.Duration * time.Duration(n)}
	}
	return Delta{Years: d.Years * n, Months: d.Months * n, Days: d.Days * n}
}

type probeCacheKey struct {
	rule *Rule
	tz   string
}

var (
	stepCacheMu sync.Mutex
	stepCache   = map[probeCacheKey]Delta{}
)

// FindBucketStart discovers the start of the bucket containing dt for an
// arbitrary bucket rule by probing at descending resolutions (seconds,
// minutes, hours, days, months, years) for the first backward step that
// changes the label, then walking backward while the label holds. The start
// necessarily depends on dt, so (unlike FindBucketStep) it is not memoized
// per (rule, tz); FindBucketStep's cache already removes the bulk of the
// repeated-probe cost the source's design notes call out.
func FindBucketStart(rule *Rule, dt time.Time, tz *time.Location) (time.Time, error) {
	if rule.Range != nil {
		return rule.Range(dt, tz).Start, nil
	}

	local := dt.In(tz)
	truncated := local.Truncate(time.Second)

	for _, step := range startLadder {
		edge, ok, err := findBucketEdge(rule, truncated, tz, step.delta, step.steps)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return edge, nil
		}
		truncated = truncateForNextResolution(truncated, step, tz)
	}

	return time.Time{}, errors.Wrapf(ErrBucketNotDetected, "rule %q", rule.Name)
}

func truncateForNextResolution(dt time.Time, step struct {
	delta Delta
	steps int
}, tz *time.Location) time.Time {
	local := dt.In(tz)
	switch {
	case step.delta.Duration == -time.Second:
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, tz)
	case step.delta.Duration == -time.Minute:
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, tz)
	case step.delta.Duration == -time.Hour:
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	case step.delta.Days == -1:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, tz)
	case step.delta.Months == -1:
		return time.Date(local.Year(), 1, 1, 0, 0, 0, 0, tz)
	default:
		return local
	}
}

// FindBucketStep discovers the bucket's step size (the smallest forward
// delta that changes the label) using the same resolution ladder.
func FindBucketStep(rule *Rule, start time.Time, tz *time.Location) (Delta, error) {
	if rule.Range != nil {
		r := rule.Range(start, tz)
		return Delta{Duration: r.End.Add(microsecond).Sub(r.Start)}, nil
	}

	key := probeCacheKey{rule: rule, tz: tz.String()}
	stepCacheMu.Lock()
	if cached, ok := stepCache[key]; ok {
		stepCacheMu.Unlock()
		return cached, nil
	}
	stepCacheMu.Unlock()

	local := start.In(tz)
	truncated := local

	for _, ladder := range stepLadder {
		for i := 0; i < ladder.steps; i++ {
			delta := ladder.unit(i + 1)
			changed, err := checkBucketDelta(rule, truncated, tz, delta)
			if err != nil {
				return Delta{}, err
			}
			if changed {
				stepCacheMu.Lock()
				stepCache[key] = delta
				stepCacheMu.Unlock()
				return delta, nil
			}
		}
	}

	return Delta{}, errors.Wrapf(ErrBucketNotDetected, "rule %q", rule.Name)
}
