// Package internal contains core application functionality
package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"insights/internal/baselinecache"
	"insights/internal/config"
	"insights/internal/database"
	"insights/internal/http"
	"insights/internal/jobs"
)

// Application wraps cartridge.Application with the components the
// background workers and command line tools need direct access to.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Scheduler *jobs.Scheduler
	Drafts    *jobs.AutosaveQueue
	Baselines baselinecache.Cache
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return newApp(cfg, nil)
}

// NewAppWithRoutes creates a new application with a custom route mounting
// function instead of the default API.
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	return newApp(cfg, routeMount)
}

func newApp(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	baselines, err := baselinecache.New(baselinecache.Config{
		Enabled:  cfg.CacheEnabled,
		RedisURL: cfg.RedisURL,
		TTL:      time.Duration(cfg.BaselineCacheTTLSeconds) * time.Second,
	})
	if err != nil {
		// Baselines are recomputed from the store when the cache is down.
		logger.Warn("Baseline cache unavailable, continuing without it", slog.Any("error", err))
		baselines = baselinecache.NewNoop()
	}

	drafts := jobs.NewAutosaveQueue(dbManager, logger, time.Duration(cfg.AutosaveDelaySeconds)*time.Second)

	scheduler, err := jobs.NewScheduler(dbManager, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	if routeMount == nil {
		routeMount = NewRouteMounter(http.NewHandlers(baselines, drafts, cfg.HistoryLimit))
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    routeMount,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler, drafts},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Scheduler:   scheduler,
		Drafts:      drafts,
		Baselines:   baselines,
	}, nil
}
