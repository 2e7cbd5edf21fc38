package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing stored or submitted dates
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04", // HTML datetime-local format
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or timestamp. Values without a zone are
// taken as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// FormatDate renders a date the way it is persisted.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type PeriodParserParams struct {
	Range    string
	FromDate string
	ToDate   string
	Tz       string
}

type PeriodParser struct {
	timeProvider TimeProvider
}

func NewPeriodParser(timeProvider ...TimeProvider) *PeriodParser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &PeriodParser{
		timeProvider: provider,
	}
}

// Parse resolves explicit from/to dates, falling back to a range label.
// With neither it returns an open period, which excludes nothing from
// historical comparison.
func (p *PeriodParser) Parse(params PeriodParserParams) (*Period, error) {
	tz := params.Tz
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}

	if params.FromDate != "" || params.ToDate != "" {
		if params.FromDate == "" || params.ToDate == "" {
			return nil, fmt.Errorf("both 'start' and 'end' are required for a custom period")
		}
		from, err := ParseDate(params.FromDate)
		if err != nil {
			return nil, fmt.Errorf("invalid 'start' date: %w", err)
		}
		to, err := ParseDate(params.ToDate)
		if err != nil {
			return nil, fmt.Errorf("invalid 'end' date: %w", err)
		}
		// A bare date as end covers the whole day.
		if len(strings.TrimSpace(params.ToDate)) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		return NewPeriod(from, to)
	}

	if params.Range == "" {
		return &Period{}, nil
	}

	return p.Preset(RangeLabel(params.Range), loc)
}

// Preset returns the period a range label covers, evaluated in loc.
func (p *PeriodParser) Preset(label RangeLabel, loc *time.Location) (*Period, error) {
	now := p.timeProvider.Now(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfToday := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	var from, to time.Time
	switch label {
	case RangeLabelToday:
		from, to = today, endOfToday
	case RangeLabelYesterday:
		from, to = today.AddDate(0, 0, -1), today.Add(-time.Nanosecond)
	case RangeLabelLast7Days:
		from, to = today.AddDate(0, 0, -6), endOfToday
	case RangeLabelLast30Days:
		from, to = today.AddDate(0, 0, -29), endOfToday
	case RangeLabelMonthToDate:
		from, to = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), endOfToday
	case RangeLabelLastMonth:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		from, to = firstOfMonth.AddDate(0, -1, 0), firstOfMonth.Add(-time.Nanosecond)
	case RangeLabelYearToDate:
		from, to = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc), endOfToday
	case RangeLabelLast12Months:
		from, to = today.AddDate(-1, 0, 1), endOfToday
	default:
		return nil, fmt.Errorf("unknown range: %s", label)
	}

	period, err := NewPeriod(from, to)
	if err != nil {
		return nil, err
	}
	period.Label = label
	return period, nil
}
