package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod marks a malformed or empty reporting period.
// Rejected before any upstream scan happens.
var ErrInvalidPeriod = errors.New("invalid reporting period")

// Kind is the granularity of a reporting period.
type Kind string

const (
	KindDay   Kind = "day"
	KindMonth Kind = "month"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Period is a single reporting period (one calendar day or one calendar month, UTC).
type Period struct {
	Kind  Kind
	Start time.Time // truncated to the period boundary, UTC
}

// Range is a half-open time interval [Start, End).
// This is the only filter shape the engine emits: it maps directly onto
// `ts >= $1 AND ts < $2`, which a range index can evaluate. Truncate-then-compare
// filtering is deliberately unrepresentable here.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the half-open range.
func (r Range) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && ts.Before(r.End)
}

// Parse parses a canonical period key: "2006-01-02" for a day, "2006-01" for a month.
func Parse(key string) (Period, error) {
	if t, err := time.ParseInLocation(dayLayout, key, time.UTC); err == nil {
		return Period{Kind: KindDay, Start: t}, nil
	}
	if t, err := time.ParseInLocation(monthLayout, key, time.UTC); err == nil {
		return Period{Kind: KindMonth, Start: t}, nil
	}
	return Period{}, fmt.Errorf("%w: %q (want YYYY-MM-DD or YYYY-MM)", ErrInvalidPeriod, key)
}

// DayOf returns the day period containing ts.
func DayOf(ts time.Time) Period {
	y, m, d := ts.UTC().Date()
	return Period{Kind: KindDay, Start: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MonthOf returns the month period containing ts.
func MonthOf(ts time.Time) Period {
	y, m, _ := ts.UTC().Date()
	return Period{Kind: KindMonth, Start: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// PreviousDay returns the most recently completed day as of now.
func PreviousDay(now time.Time) Period {
	today := DayOf(now)
	return DayOf(today.Start.Add(-time.Hour))
}

// PreviousMonth returns the most recently completed month as of now.
func PreviousMonth(now time.Time) Period {
	thisMonth := MonthOf(now)
	return MonthOf(thisMonth.Start.Add(-time.Hour))
}

// End returns the exclusive end boundary of the period.
func (p Period) End() time.Time {
	switch p.Kind {
	case KindDay:
		return p.Start.AddDate(0, 0, 1)
	case KindMonth:
		return p.Start.AddDate(0, 1, 0)
	}
	return p.Start
}

// Next returns the period immediately following this one.
func (p Period) Next() Period {
	return Period{Kind: p.Kind, Start: p.End()}
}

// Key returns the canonical string form, also used as the rollup-store period key.
func (p Period) Key() string {
	switch p.Kind {
	case KindDay:
		return p.Start.Format(dayLayout)
	case KindMonth:
		return p.Start.Format(monthLayout)
	}
	return p.Start.Format(time.RFC3339)
}

// Range returns the half-open window [Start, End) for the period.
// Fails with ErrInvalidPeriod if the window is degenerate (start >= end),
// which only happens for an uninitialized or corrupted Period value.
func (p Period) Range() (Range, error) {
	end := p.End()
	if !p.Start.Before(end) {
		return Range{}, fmt.Errorf("%w: degenerate window [%s, %s)", ErrInvalidPeriod, p.Start, end)
	}
	return Range{Start: p.Start, End: end}, nil
}

// Elapsed reports whether the period's end boundary has passed as of now,
// i.e. the period is complete and eligible for a final refresh.
func (p Period) Elapsed(now time.Time) bool {
	return !now.UTC().Before(p.End())
}
