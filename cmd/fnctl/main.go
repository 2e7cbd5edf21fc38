// main.go - Admin control tool for insights
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"insights/internal"
	"insights/internal/config"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:  "fnctl",
		Usage: "Administer the funnel insights service",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Write JSON even when stdout is a terminal",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FNCTL_LOG_LEVEL"},
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			migrateCommand(),
			statusCommand(),
			calculateCommand(),
			reportCommand(),
			baselineCommand(),
			retentionCommand(),
			settingsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

// setupLogging sends CLI logs to stderr and to a rotated file next to the
// service logs.
func setupLogging(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	cfg := config.GetConfig()
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.GetLogDirectory(), "fnctl.log"),
		MaxSize:    cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAge:     cfg.GetLogMaxAgeDays(),
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// wantJSON is true when output is piped or --json is set.
func wantJSON(c *cli.Context) bool {
	return c.Bool("json") || !term.IsTerminal(int(os.Stdout.Fd()))
}

// withApp initializes the application for commands that need the database
// and shuts it down afterwards. Background workers are never started.
func withApp(action func(c *cli.Context, app *internal.Application) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		app, err := internal.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("Cleanup error")
			}
			if err := app.Baselines.Close(); err != nil {
				log.WithError(err).Debug("Baseline cache close error")
			}
		}()

		return action(c, app)
	}
}
