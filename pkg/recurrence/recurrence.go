// Package recurrence computes the calendar dates produced by a recurring
// service pattern.
//
// All dates are civil dates carried as time.Time values at 00:00 UTC. The
// lower bound of a pattern is the day after its watermark when one is set,
// otherwise the start date itself, so a start date that matches the pattern
// is produced exactly once.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// PatternType identifies how a pattern repeats.
type PatternType string

const (
	Weekly   PatternType = "weekly"
	BiWeekly PatternType = "bi_weekly"
	Monthly  PatternType = "monthly"
	Custom   PatternType = "custom"
)

// ErrInvalidPattern is wrapped by every validation failure.
var ErrInvalidPattern = errors.New("invalid recurrence pattern")

// Pattern is the part of a recurring pattern the evaluator reads.
type Pattern struct {
	Type          PatternType
	DayOfWeek     int
	WeekOfMonth   *int
	IntervalWeeks *int
	StartDate     time.Time
	EndDate       *time.Time
	LastGenerated *time.Time
}

// Date returns the civil date y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping the calendar day as seen in
// t's own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today returns the current civil date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(now.In(loc))
}

// Validate reports whether p can be evaluated.
func Validate(p Pattern) error {
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week %d out of range 0-6", ErrInvalidPattern, p.DayOfWeek)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", ErrInvalidPattern)
	}

	switch p.Type {
	case Weekly, BiWeekly:
	case Monthly:
		if p.WeekOfMonth == nil || *p.WeekOfMonth < 1 || *p.WeekOfMonth > 5 {
			return fmt.Errorf("%w: week_of_month must be between 1 and 5", ErrInvalidPattern)
		}
	case Custom:
		if p.IntervalWeeks == nil || *p.IntervalWeeks < 1 {
			return fmt.Errorf("%w: interval_weeks must be at least 1", ErrInvalidPattern)
		}
	default:
		return fmt.Errorf("%w: unknown pattern type %q", ErrInvalidPattern, p.Type)
	}

	return nil
}

// Evaluate returns the dates of p that fall within [windowStart, windowEnd],
// after the watermark and not after the end date, in increasing order.
// It holds no state; identical inputs give identical output.
func Evaluate(p Pattern, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	from, to := Truncate(windowStart), Truncate(windowEnd)

	lower := Truncate(p.StartDate)
	if p.LastGenerated != nil {
		if next := Truncate(*p.LastGenerated).AddDate(0, 0, 1); next.After(lower) {
			lower = next
		}
	}
	if lower.After(from) {
		from = lower
	}
	if p.EndDate != nil {
		if end := Truncate(*p.EndDate); end.Before(to) {
			to = end
		}
	}
	if from.After(to) {
		return nil, nil
	}

	switch p.Type {
	case Monthly:
		return monthly(p, from, to), nil
	case BiWeekly:
		return stepped(p, from, to, 2), nil
	case Custom:
		return stepped(p, from, to, *p.IntervalWeeks), nil
	default:
		return stepped(p, from, to, 1), nil
	}
}

// Preview lists up to limit dates of p in [from, to], ignoring the watermark.
func Preview(p Pattern, from, to time.Time, limit int) ([]time.Time, error) {
	p.LastGenerated = nil
	dates, err := Evaluate(p, from, to)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

// stepped emits every interval-th weekday counted from the first matching
// weekday on or after the start date.
func stepped(p Pattern, from, to time.Time, interval int) []time.Time {
	anchor := nextWeekday(Truncate(p.StartDate), p.DayOfWeek)

	first := nextWeekday(from, p.DayOfWeek)
	if first.Before(anchor) {
		first = anchor
	}
	if rem := (daysBetween(anchor, first) / 7) % interval; rem != 0 {
		first = first.AddDate(0, 0, 7*(interval-rem))
	}

	var dates []time.Time
	for d := first; !d.After(to); d = d.AddDate(0, 0, 7*interval) {
		dates = append(dates, d)
	}
	return dates
}

func monthly(p Pattern, from, to time.Time) []time.Time {
	var dates []time.Time
	for m := Date(from.Year(), from.Month(), 1); !m.After(to); m = m.AddDate(0, 1, 0) {
		d, ok := nthWeekday(m.Year(), m.Month(), p.DayOfWeek, *p.WeekOfMonth)
		if !ok || d.Before(from) || d.After(to) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// nthWeekday finds the n-th given weekday of a month. A fifth occurrence
// that spills into the next month does not exist.
func nthWeekday(year int, month time.Month, weekday, n int) (time.Time, bool) {
	d := nextWeekday(Date(year, month, 1), weekday).AddDate(0, 0, 7*(n-1))
	if d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func nextWeekday(d time.Time, weekday int) time.Time {
	diff := (weekday - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, diff)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
