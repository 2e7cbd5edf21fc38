package history

import (
	"insights/internal/funnel"
)

// Comparison holds percentage changes of the current analysis against the
// baseline. A change is nil when the baseline value is not positive.
type Comparison struct {
	RevenueChange *float64 `json:"revenueChange,omitempty"`
	ProfitChange  *float64 `json:"profitChange,omitempty"`
	ROIChange     *float64 `json:"roiChange,omitempty"`
	CACChange     *float64 `json:"cacChange,omitempty"`
	LTVChange     *float64 `json:"ltvChange,omitempty"`
	AOVChange     *float64 `json:"aovChange,omitempty"`
}

// Compare returns nil without a baseline.
func Compare(in funnel.Input, d funnel.Diagnostics, baseline *Metrics) *Comparison {
	if baseline == nil {
		return nil
	}

	current := Snapshot(in, d)
	return &Comparison{
		RevenueChange: percentageChange(current.Revenue, baseline.Revenue),
		ProfitChange:  percentageChange(current.Profit, baseline.Profit),
		ROIChange:     percentageChange(current.ROI, baseline.ROI),
		CACChange:     percentageChange(current.CAC, baseline.CAC),
		LTVChange:     percentageChange(current.LTV, baseline.LTV),
		AOVChange:     percentageChange(current.AverageOrderValue, baseline.AverageOrderValue),
	}
}

func percentageChange(current, previous float64) *float64 {
	if previous > 0 {
		change := ((current - previous) / previous) * 100
		return &change
	}
	return nil
}
