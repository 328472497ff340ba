// Package bucket implements the time-bucket algebra: deriving the bucket a
// timestamp falls into, its absolute start/end, step size, and aligned
// contiguous ranges across DST and variable-length months.
package bucket

import (
	"time"
)

// Range is a half-open-by-microsecond bucket: [Start, End], where
// End = next bucket's Start - 1 microsecond.
type Range struct {
	Start time.Time
	End   time.Time
}

// LabelFunc derives the stable label identifying the bucket containing dt in
// the given timezone. Equal labels mean the same logical bucket.
type LabelFunc func(dt time.Time, tz *time.Location) string

// RangeFunc computes the absolute [start, end] of the bucket containing dt,
// when known in closed form (the four named rules). Custom rules leave this
// nil and fall back to probing (FindBucketStart/FindBucketStep).
type RangeFunc func(dt time.Time, tz *time.Location) Range

// Rule is a bucket rule: a label function, optionally paired with a direct
// range implementation. User-supplied rules are opaque label functions and
// must be discovered by probing.
type Rule struct {
	Name  string
	Label LabelFunc
	Range RangeFunc
}

// NewCustomRule wraps an opaque (dt, tz) -> label function as a Rule with no
// closed-form Range; FindBucketStart/FindBucketStep will probe for it.
func NewCustomRule(label LabelFunc) *Rule {
	return &Rule{Label: label}
}

const microsecond = time.Microsecond

func dateToDateTime(y int, m time.Month, d int, tz *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, tz).UTC()
}

func dateOf(dt time.Time, tz *time.Location) (int, time.Month, int) {
	return dt.In(tz).Date()
}

// GetHourlyRange returns the [start, end] of the hour containing dt in tz.
func GetHourlyRange(dt time.Time, tz *time.Location) Range {
	local := dt.In(tz)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, tz)
	end := start.Add(time.Hour).UTC().Add(-microsecond)
	return Range{Start: start.UTC(), End: end}
}

// GetDailyRange returns the [start, end] of the calendar day containing dt in tz.
func GetDailyRange(dt time.Time, tz *time.Location) Range {
	y, m, d := dateOf(dt, tz)
	start := dateToDateTime(y, m, d, tz)
	end := dateToDateTime(y, m, d+1, tz).Add(-microsecond)
	return Range{Start: start, End: end}
}

// GetWeeklyRange returns the [start, end] of the ISO (Monday-start) week
// containing dt in tz.
func GetWeeklyRange(dt time.Time, tz *time.Location) Range {
	y, m, d := dateOf(dt, tz)
	weekStart := time.Date(y, m, d, 0, 0, 0, 0, tz)
	// weekday() in Python is 0=Monday..6=Sunday; Go's Weekday is 0=Sunday.
	offset := (int(weekStart.Weekday()) + 6) % 7
	weekStart = weekStart.AddDate(0, 0, -offset)
	start := weekStart.UTC()
	end := weekStart.AddDate(0, 0, 7).UTC().Add(-microsecond)
	return Range{Start: start, End: end}
}

// GetMonthlyRange returns the [start, end] of the calendar month containing
// dt in tz.
func GetMonthlyRange(dt time.Time, tz *time.Location) Range {
	y, m, _ := dateOf(dt, tz)
	start := dateToDateTime(y, m, 1, tz)
	end := dateToDateTime(y, m+1, 1, tz).Add(-microsecond)
	return Range{Start: start, End: end}
}

func hourlyLabel(dt time.Time, tz *time.Location) string {
	return dt.In(tz).Format("2006-01-02T15")
}

func dailyLabel(dt time.Time, tz *time.Location) string {
	return dt.In(tz).Format("2006-01-02")
}

func weeklyLabel(dt time.Time, tz *time.Location) string {
	local := dt.In(tz)
	// %W: week of year, Monday as first day, days before the first Monday are
	// week 00 — the same definition strftime uses. When January 1st is
	// itself a Monday (weekday == 0) it starts week 01, not week 00: the
	// "00" rule only applies to days that precede the year's first Monday.
	yday := local.YearDay() - 1
	weekday := (int(time.Date(local.Year(), 1, 1, 0, 0, 0, 0, tz).Weekday()) + 6) % 7
	week := (yday + weekday) / 7
	if weekday == 0 {
		week++
	}
	return local.Format("2006") + "w" + padTwo(week)
}

func padTwo(v int) string {
	if v < 10 {
		return "0" + itoa(v)
	}
	return itoa(v)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	digits := [4]byte{}
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

func monthlyLabel(dt time.Time, tz *time.Location) string {
	return dt.In(tz).Format("2006-01")
}

// Hourly buckets by wall-clock hour, label "YYYY-MM-DDTHH".
var Hourly = &Rule{Name: "hourly", Label: hourlyLabel, Range: GetHourlyRange}

// Daily buckets by calendar day, label "YYYY-MM-DD".
var Daily = &Rule{Name: "daily", Label: dailyLabel, Range: GetDailyRange}

// Weekly buckets by ISO (Monday-start) week, label "YYYYwWW".
var Weekly = &Rule{Name: "weekly", Label: weeklyLabel, Range: GetWeeklyRange}

// Monthly buckets by calendar month, label "YYYY-MM".
var Monthly = &Rule{Name: "monthly", Label: monthlyLabel, Range: GetMonthlyRange}
