// Package app exposes the application's entry points to other binaries
// built on top of it.
package app

import (
	"github.com/karloscodes/cartridge"

	"insights/internal"
	"insights/internal/config"
	"insights/internal/database"
	"insights/internal/funnel"
	"insights/internal/report"
)

// Re-export core types
type (
	Application = internal.Application
	Config      = config.Config
	DBManager   = database.DBManager
	Input       = funnel.Input
	Diagnostics = funnel.Diagnostics
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	return config.GetConfig()
}

// NewApp creates a new application with default routes
func NewApp() (*Application, error) {
	return internal.NewApp()
}

// NewAppWithRoutes creates a new application with custom route mounting
func NewAppWithRoutes(cfg *Config, routeMount func(*cartridge.Server)) (*Application, error) {
	return internal.NewAppWithRoutes(cfg, routeMount)
}

// MountAppRoutes mounts the JSON API (for embedding binaries to call after
// their own routes)
func MountAppRoutes(srv *cartridge.Server) {
	internal.MountAppRoutes(srv)
}

// Calculation functions
var (
	Calculate   = funnel.Calculate
	BuildReport = report.Build
)
