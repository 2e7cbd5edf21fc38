// Package history averages past funnel analyses into a baseline for trend
// comparison.
package history

import (
	"time"

	"insights/internal/funnel"
	"insights/internal/timeframe"
)

// Record is one past analysis. Diagnostics is nil when the stored snapshot
// had none; such records never contribute to a baseline.
type Record struct {
	Input       funnel.Input
	Diagnostics *funnel.Diagnostics
	CreatedAt   time.Time
}

// Metrics holds per-analysis economics, or their mean when used as a baseline.
type Metrics struct {
	Revenue           float64 `json:"revenue"`
	Profit            float64 `json:"profit"`
	ROI               float64 `json:"roi"`
	CAC               float64 `json:"cac"`
	LTV               float64 `json:"ltv"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

// Snapshot derives the comparable metrics of a single analysis. Revenue and
// ROI come from the stored diagnostics; the rest is recomputed from input.
func Snapshot(in funnel.Input, d funnel.Diagnostics) Metrics {
	revenue := d.TotalRevenue
	totalSales := float64(funnel.TotalSales(in))
	aov := funnel.SafeDivide(revenue, totalSales)

	return Metrics{
		Revenue:           revenue,
		Profit:            revenue - in.AdSpend,
		ROI:               d.CurrentROI,
		CAC:               funnel.SafeDivide(in.AdSpend, totalSales),
		LTV:               funnel.LTV(aov),
		AverageOrderValue: aov,
	}
}

// Aggregate averages every record whose period does not overlap current.
// Records or a current period lacking dates count as non-overlapping.
// It returns nil when there is nothing to average.
func Aggregate(current *timeframe.Period, records []Record) *Metrics {
	if len(records) == 0 {
		return nil
	}

	var sum Metrics
	var n int
	for _, r := range Eligible(current, records) {
		m := Snapshot(r.Input, *r.Diagnostics)
		sum.Revenue += m.Revenue
		sum.Profit += m.Profit
		sum.ROI += m.ROI
		sum.CAC += m.CAC
		sum.LTV += m.LTV
		sum.AverageOrderValue += m.AverageOrderValue
		n++
	}

	if n == 0 {
		return nil
	}

	count := float64(n)
	return &Metrics{
		Revenue:           sum.Revenue / count,
		Profit:            sum.Profit / count,
		ROI:               sum.ROI / count,
		CAC:               sum.CAC / count,
		LTV:               sum.LTV / count,
		AverageOrderValue: sum.AverageOrderValue / count,
	}
}

// Eligible filters out records that overlap current or carry no diagnostics.
func Eligible(current *timeframe.Period, records []Record) []Record {
	eligible := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Diagnostics == nil {
			continue
		}
		if current.Overlaps(r.Input.Period()) {
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible
}
