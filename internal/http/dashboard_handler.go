package http

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"insights/internal/analyses"
	"insights/internal/funnel"
	"insights/internal/history"
	"insights/internal/pkg/async"
	"insights/internal/settings"
)

type DashboardResponse struct {
	Analysis           *analyses.Analysis            `json:"analysis"`
	Diagnostics        *funnel.Diagnostics           `json:"diagnostics"`
	Comparison         []funnel.ComparisonRow        `json:"comparison"`
	RevenueBreakdown   []funnel.RevenueBreakdownItem `json:"revenue_breakdown"`
	Finance            *funnel.FinanceMetrics        `json:"finance"`
	Baseline           *history.Metrics              `json:"baseline"`
	BaselineComparison *history.Comparison           `json:"baseline_comparison,omitempty"`
	Defaults           settings.Defaults             `json:"defaults"`
	Recent             []analyses.Analysis           `json:"recent"`
	Degraded           bool                          `json:"degraded,omitempty"`
}

const dashboardRecentCount = 5

func (h *Handlers) fetchDashboard(ctx context.Context, db *gorm.DB, owner string, logger *slog.Logger) (*DashboardResponse, error) {
	tasks := []async.Task{
		{
			Name: "latest",
			Execute: func(ctx context.Context) (any, error) {
				a, err := analyses.Latest(db.WithContext(ctx), owner)
				if errors.Is(err, analyses.ErrAnalysisNotFound) {
					return (*analyses.Analysis)(nil), nil
				}
				return a, err
			},
		},
		{
			Name: "history",
			Execute: func(ctx context.Context) (any, error) {
				return analyses.ListForOwner(db.WithContext(ctx), owner, h.HistoryLimit)
			},
		},
		{
			Name: "defaults",
			Execute: func(ctx context.Context) (any, error) {
				return settings.LoadDefaults(db), nil
			},
		},
	}

	results := h.Pool.Execute(ctx, tasks)

	latest := results["latest"]
	if latest.Err != nil {
		return nil, fmt.Errorf("failed to load latest analysis: %w", latest.Err)
	}

	response := &DashboardResponse{
		Comparison:       []funnel.ComparisonRow{},
		RevenueBreakdown: []funnel.RevenueBreakdownItem{},
		Recent:           []analyses.Analysis{},
		Defaults:         settings.Defaults{TargetROI: funnel.DefaultTargetROI},
	}
	if d, ok := results["defaults"].Data.(settings.Defaults); ok {
		response.Defaults = d
	}

	var past []analyses.Analysis
	if hist := results["history"]; hist.Err != nil {
		logger.Error("Failed to load analysis history", slog.Any("error", hist.Err))
		response.Degraded = true
	} else if list, ok := hist.Data.([]analyses.Analysis); ok {
		past = list
		response.Recent = list[:min(len(list), dashboardRecentCount)]
	}

	analysis, _ := latest.Data.(*analyses.Analysis)
	if analysis == nil {
		return response, nil
	}

	in, err := analysis.DecodeInput()
	if err != nil {
		return nil, err
	}

	calc := buildCalculation(in)
	response.Analysis = analysis
	response.Diagnostics = &calc.Diagnostics
	response.Comparison = calc.Comparison
	response.RevenueBreakdown = calc.RevenueBreakdown
	response.Finance = &calc.Finance

	if !response.Degraded {
		response.Baseline = history.Aggregate(in.Period(), analyses.ToRecords(past, logger))
		response.BaselineComparison = history.Compare(in, calc.Diagnostics, response.Baseline)
	}

	return response, nil
}

// DashboardAction loads the owner's last analysis, recent history, baseline
// and defaults in one response.
func (h *Handlers) DashboardAction(ctx *cartridge.Context) error {
	owner := ownerID(ctx)

	response, err := h.fetchDashboard(ctx.UserContext(), ctx.DB(), owner, ctx.Logger)
	if err != nil {
		ctx.Logger.Error("Failed to build dashboard", slog.String("owner", owner), slog.Any("error", err))
		return serverError(ctx, "Failed to load dashboard")
	}

	return ctx.JSON(response)
}
