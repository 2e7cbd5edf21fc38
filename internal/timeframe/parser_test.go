package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/timeframe"
)

// MockTimeProvider implements the TimeProvider interface for testing
type MockTimeProvider struct {
	FixedTime time.Time
}

func (m *MockTimeProvider) Now(loc *time.Location) time.Time {
	return m.FixedTime.In(loc)
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"RFC3339 UTC", "2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"RFC3339 with offset", "2024-03-15T10:30:00-03:00", time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC), false},
		{"milliseconds", "2024-03-15T10:30:00.123Z", time.Date(2024, 3, 15, 10, 30, 0, 123000000, time.UTC), false},
		{"datetime-local", "2024-03-15T10:30", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"date only", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"surrounding spaces", " 2024-03-15 ", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "15/03/2024", time.Time{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := timeframe.ParseDate(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(parsed), "expected %v, got %v", tc.expected, parsed)
		})
	}
}

func TestParseOptionalDate(t *testing.T) {
	parsed, err := timeframe.ParseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	parsed, err = timeframe.ParseOptionalDate("2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "2024-01-31T00:00:00Z", timeframe.FormatDate(*parsed))
}

func TestPeriodParser(t *testing.T) {
	// Friday, March 15 2024, 12:00 UTC
	fixedTime := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	parser := timeframe.NewPeriodParser(&MockTimeProvider{FixedTime: fixedTime})

	testCases := []struct {
		name          string
		params        timeframe.PeriodParserParams
		expectedFrom  time.Time
		expectedTo    time.Time
		expectOpen    bool
		expectedError bool
	}{
		{
			name:         "custom dates cover the whole end day",
			params:       timeframe.PeriodParserParams{FromDate: "2024-02-01", ToDate: "2024-02-29"},
			expectedFrom: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expectedTo:   time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:         "custom timestamps are kept as given",
			params:       timeframe.PeriodParserParams{FromDate: "2024-02-01T08:00:00Z", ToDate: "2024-02-02T08:00:00Z"},
			expectedFrom: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
			expectedTo:   time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name:         "last 7 days",
			params:       timeframe.PeriodParserParams{Range: "last_7_days"},
			expectedFrom: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			expectedTo:   time.Date(2024, 3, 15, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:         "last month",
			params:       timeframe.PeriodParserParams{Range: "last_month"},
			expectedFrom: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expectedTo:   time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:         "month to date",
			params:       timeframe.PeriodParserParams{Range: "month_to_date"},
			expectedFrom: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			expectedTo:   time.Date(2024, 3, 15, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:       "no dates and no range is open",
			params:     timeframe.PeriodParserParams{},
			expectOpen: true,
		},
		{
			name:          "only one custom boundary",
			params:        timeframe.PeriodParserParams{FromDate: "2024-02-01"},
			expectedError: true,
		},
		{
			name:          "inverted custom range",
			params:        timeframe.PeriodParserParams{FromDate: "2024-02-10", ToDate: "2024-02-01"},
			expectedError: true,
		},
		{
			name:          "unknown range",
			params:        timeframe.PeriodParserParams{Range: "fortnight"},
			expectedError: true,
		},
		{
			name:          "bad timezone",
			params:        timeframe.PeriodParserParams{Range: "today", Tz: "Mars/Olympus"},
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			period, err := parser.Parse(tc.params)
			if tc.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, period)

			if tc.expectOpen {
				assert.False(t, period.Complete())
				return
			}
			require.True(t, period.Complete())
			assert.True(t, tc.expectedFrom.Equal(*period.Start), "from: expected %v, got %v", tc.expectedFrom, period.Start)
			assert.True(t, tc.expectedTo.Equal(*period.End), "to: expected %v, got %v", tc.expectedTo, period.End)
		})
	}
}

func TestPresetRespectsTimezone(t *testing.T) {
	// 01:00 UTC on the 16th is still the 15th in Sao Paulo.
	fixedTime := time.Date(2024, 3, 16, 1, 0, 0, 0, time.UTC)
	parser := timeframe.NewPeriodParser(&MockTimeProvider{FixedTime: fixedTime})

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	period, err := parser.Preset(timeframe.RangeLabelToday, loc)
	require.NoError(t, err)
	assert.Equal(t, 15, period.Start.In(loc).Day())
	assert.Equal(t, timeframe.RangeLabelToday, period.Label)
}
