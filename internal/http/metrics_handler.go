package http

import (
	"github.com/karloscodes/cartridge"

	"insights/internal/funnel"
	"insights/internal/metrics"
	"insights/internal/settings"
)

// CalculationResponse is everything the funnel screen renders for one input.
type CalculationResponse struct {
	Input            funnel.Input                  `json:"input"`
	Diagnostics      funnel.Diagnostics            `json:"diagnostics"`
	Comparison       []funnel.ComparisonRow        `json:"comparison"`
	RevenueBreakdown []funnel.RevenueBreakdownItem `json:"revenue_breakdown"`
	Finance          funnel.FinanceMetrics         `json:"finance"`
}

func buildCalculation(in funnel.Input) CalculationResponse {
	return CalculationResponse{
		Input:            in,
		Diagnostics:      funnel.Calculate(in),
		Comparison:       funnel.ComparisonRows(&in),
		RevenueBreakdown: funnel.RevenueBreakdown(in),
		Finance:          funnel.Finance(in),
	}
}

// MetricsCalculateAction computes diagnostics for the posted funnel input
// without storing anything. Missing target ROI and monthly goal come from
// settings.
func (h *Handlers) MetricsCalculateAction(ctx *cartridge.Context) error {
	var in funnel.Input
	if err := ctx.BodyParser(&in); err != nil {
		return badRequest(ctx, "Invalid funnel input: "+err.Error())
	}

	if err := in.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}
	in = settings.ApplyDefaults(ctx.DB(), in).Normalize()

	metrics.IncCalculations()
	return ctx.JSON(buildCalculation(in))
}
