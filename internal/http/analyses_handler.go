package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"insights/internal/analyses"
	"insights/internal/funnel"
	"insights/internal/history"
	"insights/internal/metrics"
	"insights/internal/settings"
)

// AnalysisResponse pairs a stored analysis with its decoded diagnostics.
type AnalysisResponse struct {
	Analysis    *analyses.Analysis  `json:"analysis"`
	Diagnostics *funnel.Diagnostics `json:"diagnostics"`
}

// AnalysesListAction returns the owner's saved analyses, newest first.
func (h *Handlers) AnalysesListAction(ctx *cartridge.Context) error {
	limit := ctx.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > h.HistoryLimit {
		limit = h.HistoryLimit
	}

	list, err := analyses.ListForOwner(ctx.DB(), ownerID(ctx), limit)
	if err != nil {
		ctx.Logger.Error("Failed to list analyses", slog.Any("error", err))
		return serverError(ctx, "Failed to fetch analyses")
	}

	return ctx.JSON(fiber.Map{
		"analyses": list,
	})
}

// AnalysisCreateAction stores a snapshot with its diagnostics and returns
// the diagnostics compared against the owner's baseline.
func (h *Handlers) AnalysisCreateAction(ctx *cartridge.Context) error {
	name, in, err := parseAnalysisRequest(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid analysis body: "+err.Error())
	}

	if err := in.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}

	db := ctx.DB()
	owner := ownerID(ctx)
	in = settings.ApplyDefaults(db, in)

	analysis, err := analyses.Create(db, ctx.Logger, owner, name, in)
	if err != nil {
		return inputError(ctx, err, "save analysis")
	}
	metrics.IncCalculations()
	h.invalidateBaselines(ctx.UserContext(), ctx.Logger, owner)

	d, err := analysis.DecodeDiagnostics()
	if err != nil {
		ctx.Logger.Error("Stored diagnostics are unreadable", slog.Any("error", err))
		return serverError(ctx, "Failed to save analysis")
	}

	ctx.Logger.Info("Analysis saved",
		slog.String("id", analysis.PublicID),
		slog.String("owner", owner))

	return ctx.Status(fiber.StatusCreated).JSON(AnalysisResponse{
		Analysis:    analysis,
		Diagnostics: d,
	})
}

// AnalysisLastAction returns the owner's most recently touched analysis,
// including the autosaved draft, with a comparison against history.
func (h *Handlers) AnalysisLastAction(ctx *cartridge.Context) error {
	db := ctx.DB()
	owner := ownerID(ctx)

	analysis, err := analyses.Latest(db, owner)
	if errors.Is(err, analyses.ErrAnalysisNotFound) {
		return notFound(ctx, "No analysis found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to load last analysis", slog.Any("error", err))
		return serverError(ctx, "Failed to load analysis")
	}

	in, err := analysis.DecodeInput()
	if err != nil {
		ctx.Logger.Error("Stored input is unreadable", slog.Any("error", err))
		return serverError(ctx, "Failed to load analysis")
	}

	calc := buildCalculation(in)
	response := fiber.Map{
		"analysis":          analysis,
		"diagnostics":       calc.Diagnostics,
		"comparison":        calc.Comparison,
		"revenue_breakdown": calc.RevenueBreakdown,
		"finance":           calc.Finance,
	}

	baseline, err := h.resolveBaseline(ctx.UserContext(), db, ctx.Logger, owner, in.Period())
	if err != nil {
		ctx.Logger.Warn("Baseline unavailable for last analysis", slog.Any("error", err))
	}
	response["baseline"] = baseline
	response["baseline_comparison"] = history.Compare(in, calc.Diagnostics, baseline)

	return ctx.JSON(response)
}

// AnalysisDeleteAction removes one of the owner's analyses.
func (h *Handlers) AnalysisDeleteAction(ctx *cartridge.Context) error {
	owner := ownerID(ctx)
	id := ctx.Params("id")
	if id == "" {
		return badRequest(ctx, "Invalid analysis ID")
	}

	err := analyses.Delete(ctx.DB(), ctx.Logger, owner, id)
	if errors.Is(err, analyses.ErrAnalysisNotFound) {
		return notFound(ctx, "Analysis not found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to delete analysis", slog.String("id", id), slog.Any("error", err))
		return serverError(ctx, "Failed to delete analysis")
	}

	h.invalidateBaselines(ctx.UserContext(), ctx.Logger, owner)
	return ctx.SendStatus(fiber.StatusNoContent)
}

// AnalysisDraftAction queues the owner's working copy for a debounced
// write and answers immediately with the computed diagnostics.
func (h *Handlers) AnalysisDraftAction(ctx *cartridge.Context) error {
	if h.Drafts == nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Autosave is not available"})
	}

	name, in, err := parseAnalysisRequest(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid draft body: "+err.Error())
	}

	if err := in.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}
	in = settings.ApplyDefaults(ctx.DB(), in).Normalize()
	if err := h.Drafts.Submit(ownerID(ctx), name, in); err != nil {
		return inputError(ctx, err, "queue draft")
	}
	metrics.IncCalculations()

	calc := buildCalculation(in)
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":      "queued",
		"diagnostics": calc.Diagnostics,
	})
}
