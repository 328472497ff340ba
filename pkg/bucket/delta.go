package bucket

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidDelta is returned by TZDeltaAdd when a delta mixes a sub-day
// duration with a calendar (day/month/year) component.
var ErrInvalidDelta = errors.New("bucket: delta cannot mix a sub-day duration with a day/month/year component")

// Delta represents a step between buckets. Exactly one of the two shapes is
// populated: a calendar delta (Years/Months/Days, applied to the local wall
// clock date) or a sub-day Duration (applied directly in UTC). Mixing both
// is invalid, mirroring the source's delta_gt_1_day/tz_delta_add split
// between relativedelta and timedelta.
type Delta struct {
	Years, Months, Days int
	Duration            time.Duration
}

func (d Delta) isCalendar() bool {
	return d.Years != 0 || d.Months != 0 || d.Days != 0
}

// Negate returns the delta in the opposite direction.
func (d Delta) Negate() Delta {
	return Delta{
		Years:    -d.Years,
		Months:   -d.Months,
		Days:     -d.Days,
		Duration: -d.Duration,
	}
}

func durationDelta(d time.Duration) Delta { return Delta{Duration: d} }
func dayDelta(days int) Delta             { return Delta{Days: days} }
func monthDelta(months int) Delta         { return Delta{Months: months} }
func yearDelta(years int) Delta           { return Delta{Years: years} }

// TZDeltaAdd adds delta to dt within the given timezone. If delta carries a
// calendar component (>= 1 day, expressed as Years/Months/Days), the date
// part is advanced on the local wall clock and rebound to local midnight.
// Otherwise the delta is added directly (in UTC terms, since dt is always
// kept in its canonical instant form).
func TZDeltaAdd(dt time.Time, tz *time.Location, delta Delta) (time.Time, error) {
	if delta.isCalendar() && delta.Duration != 0 {
		return time.Time{}, ErrInvalidDelta
	}
	if delta.isCalendar() {
		local := dt.In(tz)
		y, m, d := local.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, tz)
		advanced := midnight.AddDate(delta.Years, delta.Months, delta.Days)
		return advanced.UTC(), nil
	}
	return dt.Add(delta.Duration), nil
}
