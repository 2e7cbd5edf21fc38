package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"insights/internal/analyses"
	"insights/internal/baselinecache"
	"insights/internal/funnel"
	"insights/internal/history"
	"insights/internal/http/middleware"
	"insights/internal/metrics"
	"insights/internal/pkg/async"
	"insights/internal/timeframe"
)

const (
	defaultListLimit    = 20
	defaultHistoryLimit = 100
)

// DraftQueue accepts snapshots for debounced persistence.
type DraftQueue interface {
	Submit(ownerID, name string, in funnel.Input) error
}

// Handlers carries the collaborators the JSON API needs beyond the
// request context.
type Handlers struct {
	Baselines    baselinecache.Cache
	Drafts       DraftQueue
	Pool         *async.Pool
	HistoryLimit int
}

func NewHandlers(baselines baselinecache.Cache, drafts DraftQueue, historyLimit int) *Handlers {
	if baselines == nil {
		baselines = baselinecache.NewNoop()
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Handlers{
		Baselines:    baselines,
		Drafts:       drafts,
		Pool:         async.NewPool(3),
		HistoryLimit: historyLimit,
	}
}

// analysisRequest is the body accepted by the create and draft endpoints.
// A bare funnel input is accepted as well.
type analysisRequest struct {
	Name  string        `json:"name"`
	Input *funnel.Input `json:"input"`
}

func parseAnalysisRequest(ctx *cartridge.Context) (string, funnel.Input, error) {
	var req analysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return "", funnel.Input{}, err
	}
	if req.Input != nil {
		return req.Name, *req.Input, nil
	}

	var in funnel.Input
	if err := ctx.BodyParser(&in); err != nil {
		return "", funnel.Input{}, err
	}
	return req.Name, in, nil
}

func ownerID(ctx *cartridge.Context) string {
	return middleware.GetOwnerID(ctx.Ctx)
}

func badRequest(ctx *cartridge.Context, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func notFound(ctx *cartridge.Context, message string) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

func serverError(ctx *cartridge.Context, message string) error {
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

// inputError maps validation failures to 400 and anything else to 500.
func inputError(ctx *cartridge.Context, err error, action string) error {
	if errors.Is(err, funnel.ErrInvalidInput) || errors.Is(err, analyses.ErrOwnerRequired) {
		return badRequest(ctx, err.Error())
	}
	ctx.Logger.Error("Failed to "+action, slog.Any("error", err))
	return serverError(ctx, "Failed to "+action)
}

// resolveBaseline returns the owner's historical baseline for period,
// reading through the baseline cache. A store failure is returned so the
// caller can degrade; cache failures are only logged.
func (h *Handlers) resolveBaseline(ctx context.Context, db *gorm.DB, logger *slog.Logger, owner string, period *timeframe.Period) (*history.Metrics, error) {
	cached, hit, err := h.Baselines.Get(ctx, owner, period)
	if err != nil {
		logger.Warn("Baseline cache read failed", slog.Any("error", err))
	}
	if hit {
		metrics.ObserveBaseline(metrics.BaselineHit)
		return cached, nil
	}

	list, err := analyses.ListForOwner(db, owner, h.HistoryLimit)
	if err != nil {
		metrics.ObserveBaseline(metrics.BaselineDegraded)
		return nil, err
	}

	baseline := history.Aggregate(period, analyses.ToRecords(list, logger))
	if baseline == nil {
		metrics.ObserveBaseline(metrics.BaselineNone)
		return nil, nil
	}

	metrics.ObserveBaseline(metrics.BaselineMiss)
	if err := h.Baselines.Set(ctx, owner, period, baseline); err != nil {
		logger.Warn("Baseline cache write failed", slog.Any("error", err))
	}
	return baseline, nil
}

func (h *Handlers) invalidateBaselines(ctx context.Context, logger *slog.Logger, owner string) {
	if err := h.Baselines.InvalidateOwner(ctx, owner); err != nil {
		logger.Warn("Failed to invalidate cached baselines", slog.String("owner", owner), slog.Any("error", err))
	}
}
