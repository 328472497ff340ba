package bucket

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidTimestamp is returned by ParseTimestamp when the input cannot be
// interpreted as a date or datetime.
var ErrInvalidTimestamp = errors.New("bucket: value is not a recognizable timestamp")

var dateLayouts = []string{
	"2006-01-02",
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts a date string, a datetime string, or a time.Time
// and returns an aware instant. A bare date string or date-only time.Time
// becomes local midnight in tz. A datetime lacking an explicit offset
// (either a plain string or a time.Time expressed in time.UTC/time.Local, Go's
// stand-ins for "naive") is localized to tz by reinterpreting its wall-clock
// fields; a datetime with an explicit, named zone is treated as already aware
// and only converted to the canonical UTC instant form.
func ParseTimestamp(value any, tz *time.Location) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return localizeTime(v, tz), nil
	case string:
		return parseTimestampString(v, tz)
	default:
		return time.Time{}, errors.Wrapf(ErrInvalidTimestamp, "unsupported type %T", value)
	}
}

func localizeTime(v time.Time, tz *time.Location) time.Time {
	if isNaiveLocation(v.Location()) {
		y, m, d := v.Date()
		hh, mm, ss := v.Clock()
		return time.Date(y, m, d, hh, mm, ss, v.Nanosecond(), tz).UTC()
	}
	return v.UTC()
}

func isNaiveLocation(loc *time.Location) bool {
	return loc == time.UTC || loc == time.Local
}

func parseTimestampString(v string, tz *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, tz); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			if isNaiveLocation(t.Location()) && layout != time.RFC3339 && layout != time.RFC3339Nano {
				return localizeTime(t, tz), nil
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrInvalidTimestamp, "could not parse %q", v)
}
