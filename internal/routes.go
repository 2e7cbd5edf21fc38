package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"insights/internal/baselinecache"
	"insights/internal/config"
	"insights/internal/http"
	"insights/internal/http/middleware"
	"insights/internal/jobs"
	"insights/internal/metrics"
)

// apiCORSConfig lets browser front-ends on other origins call the JSON API.
var apiCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,POST,DELETE,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, " + middleware.OwnerHeader,
}

// MountAppRoutes mounts the API with a no-op baseline cache and an autosave
// queue bound to the server's database. Used by tests and tools that do
// not run background workers.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	drafts := jobs.NewAutosaveQueue(srv.GetDBManager(), srv.GetLogger(), time.Duration(cfg.AutosaveDelaySeconds)*time.Second)
	NewRouteMounter(http.NewHandlers(baselinecache.NewNoop(), drafts, cfg.HistoryLimit))(srv)
}

// NewRouteMounter returns a cartridge route mount function serving h.
func NewRouteMounter(h *http.Handlers) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		mountRoutes(srv, h)
	}
}

func mountRoutes(srv *cartridge.Server, h *http.Handlers) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	// Rate limiting only applies in production; it would interfere with tests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	apiRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stateless calculation: no owner needed.
	calculateConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         apiCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{apiRateLimiter},
	}

	ownerConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         apiCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware: []fiber.Handler{
			apiRateLimiter,
			middleware.OwnerScope(logger),
		},
	}

	internalConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === OPERATIONS ===
	srv.Get("/_health", h.HealthIndexAction, internalConfig)
	srv.Head("/_health", h.HealthIndexAction, internalConfig)

	metricsHandler := adaptor.HTTPHandler(metrics.Handler())
	srv.Get("/metrics", func(ctx *cartridge.Context) error {
		return metricsHandler(ctx.Ctx)
	}, internalConfig)

	// === CALCULATION ===
	srv.Post("/api/v1/metrics/calculate", h.MetricsCalculateAction, calculateConfig)
	srv.Options("/api/v1/metrics/calculate", preflight, calculateConfig)

	// === OWNER-SCOPED API ===
	srv.Get("/api/v1/analyses", h.AnalysesListAction, ownerConfig)
	srv.Post("/api/v1/analyses", h.AnalysisCreateAction, ownerConfig)
	srv.Get("/api/v1/analyses/last", h.AnalysisLastAction, ownerConfig)
	srv.Post("/api/v1/analyses/draft", h.AnalysisDraftAction, ownerConfig)
	srv.Delete("/api/v1/analyses/:id", h.AnalysisDeleteAction, ownerConfig)

	srv.Get("/api/v1/history/baseline", h.HistoryBaselineAction, ownerConfig)
	srv.Get("/api/v1/dashboard", h.DashboardAction, ownerConfig)

	for _, path := range []string{
		"/api/v1/analyses",
		"/api/v1/analyses/last",
		"/api/v1/analyses/draft",
		"/api/v1/analyses/:id",
		"/api/v1/history/baseline",
		"/api/v1/dashboard",
	} {
		srv.Options(path, preflight, calculateConfig)
	}
}
