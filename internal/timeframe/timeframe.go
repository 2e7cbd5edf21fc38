package timeframe

import (
	"fmt"
	"time"
)

// RangeLabel names a preset analysis window
type RangeLabel string

const (
	RangeLabelToday        RangeLabel = "today"
	RangeLabelYesterday    RangeLabel = "yesterday"
	RangeLabelLast7Days    RangeLabel = "last_7_days"
	RangeLabelLast30Days   RangeLabel = "last_30_days"
	RangeLabelMonthToDate  RangeLabel = "month_to_date"
	RangeLabelLastMonth    RangeLabel = "last_month"
	RangeLabelYearToDate   RangeLabel = "year_to_date"
	RangeLabelLast12Months RangeLabel = "last_12_months"
	RangeLabelCustom       RangeLabel = "custom"
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// Period is an analysis window. Either boundary may be missing; a period
// without both boundaries never overlaps anything.
type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Label RangeLabel `json:"label,omitempty"`
}

// NewPeriod builds a complete period, rejecting inverted ranges.
func NewPeriod(start, end time.Time) (*Period, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start must not be after end")
	}
	s, e := start.UTC(), end.UTC()
	return &Period{Start: &s, End: &e, Label: RangeLabelCustom}, nil
}

// Complete reports whether both boundaries are set.
func (p *Period) Complete() bool {
	return p != nil && p.Start != nil && p.End != nil
}

// Overlaps applies PeriodsOverlap when both periods are complete and
// returns false otherwise.
func (p *Period) Overlaps(other *Period) bool {
	if !p.Complete() || !other.Complete() {
		return false
	}
	return PeriodsOverlap(*p.Start, *p.End, *other.Start, *other.End)
}

// Duration returns End-Start, or zero for an incomplete period.
func (p *Period) Duration() time.Duration {
	if !p.Complete() {
		return 0
	}
	return p.End.Sub(*p.Start)
}

func (p *Period) String() string {
	if !p.Complete() {
		return "open period"
	}
	return fmt.Sprintf("%s..%s", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
}

// PeriodsOverlap reports whether [aStart,aEnd] and [bStart,bEnd] share a point.
// Boundaries are inclusive. The check is symmetric: either period's start or
// end falling inside the other period counts.
func PeriodsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return within(aStart, bStart, bEnd) ||
		within(aEnd, bStart, bEnd) ||
		within(bStart, aStart, aEnd) ||
		within(bEnd, aStart, aEnd)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
