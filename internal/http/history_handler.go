package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"insights/internal/timeframe"
)

// parsePeriod reads start/end or range (and optional tz) from the query.
func parsePeriod(ctx *cartridge.Context) (*timeframe.Period, error) {
	return timeframe.NewPeriodParser().Parse(timeframe.PeriodParserParams{
		Range:    ctx.Query("range"),
		FromDate: ctx.Query("start"),
		ToDate:   ctx.Query("end"),
		Tz:       ctx.Query("tz"),
	})
}

// HistoryBaselineAction returns the mean of the owner's past analyses that
// do not overlap the requested period. The baseline is null when nothing
// qualifies. A store failure still answers 200 with degraded set.
func (h *Handlers) HistoryBaselineAction(ctx *cartridge.Context) error {
	period, err := parsePeriod(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	owner := ownerID(ctx)
	baseline, err := h.resolveBaseline(ctx.UserContext(), ctx.DB(), ctx.Logger, owner, period)
	if err != nil {
		ctx.Logger.Error("Failed to load history for baseline",
			slog.String("owner", owner),
			slog.Any("error", err))
		return ctx.JSON(fiber.Map{
			"baseline": nil,
			"period":   period,
			"degraded": true,
		})
	}

	return ctx.JSON(fiber.Map{
		"baseline": baseline,
		"period":   period,
	})
}
