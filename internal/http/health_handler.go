package http

import (
	"context"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	DBStatus    string    `json:"db_status"`
	CacheStatus string    `json:"cache_status"`
}

// HealthIndexAction reports database and baseline cache reachability.
// A cache outage only degrades the status; baselines are recomputed.
func (h *Handlers) HealthIndexAction(ctx *cartridge.Context) error {
	health := HealthStatus{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		DBStatus:    "ok",
		CacheStatus: "ok",
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else if sqlDB, err := db.DB(); err != nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database connection error", slog.Any("error", err))
	} else if err := sqlDB.Ping(); err != nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database ping failed", slog.Any("error", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.Baselines.Ping(pingCtx); err != nil {
		health.CacheStatus = "error"
		ctx.Logger.Warn("Baseline cache ping failed", slog.Any("error", err))
	}

	if health.DBStatus != "ok" || health.CacheStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.JSON(health)
}
