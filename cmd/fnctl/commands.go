package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"insights/internal"
	"insights/internal/analyses"
	"insights/internal/config"
	"insights/internal/funnel"
	"insights/internal/history"
	"insights/internal/jobs"
	"insights/internal/report"
	"insights/internal/settings"
	"insights/internal/timeframe"
)

func fileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Funnel snapshot as JSON or YAML (- for stdin)",
		Required: true,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Runs database migrations",
		Action: withApp(func(c *cli.Context, app *internal.Application) error {
			log.Info("Running database migrations...")
			if err := app.DBManager.MigrateDatabase(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("Migrations completed successfully")
			return nil
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Shows the current system status",
		Action: withApp(func(c *cli.Context, app *internal.Application) error {
			db := app.DBManager.GetConnection()

			total, owners, err := analyses.Count(db)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			stored, err := settings.GetAllSettingsForDisplay(db)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get SQL DB: %w", err)
			}

			cacheStatus := "ok"
			if err := app.Baselines.Ping(c.Context); err != nil {
				cacheStatus = err.Error()
			}

			if wantJSON(c) {
				return writeJSON(os.Stdout, map[string]any{
					"analyses":         total,
					"owners":           owners,
					"settings":         stored,
					"open_connections": sqlDB.Stats().OpenConnections,
					"cache":            cacheStatus,
				})
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Database\tconnected")
			fmt.Fprintf(tw, "Analyses\t%d\n", total)
			fmt.Fprintf(tw, "Owners\t%d\n", owners)
			fmt.Fprintf(tw, "Baseline cache\t%s\n", cacheStatus)
			fmt.Fprintf(tw, "Open connections\t%d\n", sqlDB.Stats().OpenConnections)
			for _, s := range stored {
				fmt.Fprintf(tw, "Setting %s\t%s\n", s.Key, s.Value)
			}
			return tw.Flush()
		}),
	}
}

func calculateCommand() *cli.Command {
	return &cli.Command{
		Name:  "calculate",
		Usage: "Computes diagnostics for a funnel snapshot without storing it",
		Flags: []cli.Flag{fileFlag()},
		Action: func(c *cli.Context) error {
			in, err := readInput(c.String("file"))
			if err != nil {
				return err
			}

			d := funnel.Calculate(in)
			if wantJSON(c) {
				return writeJSON(os.Stdout, map[string]any{
					"diagnostics":       d,
					"comparison":        funnel.ComparisonRows(&in),
					"revenue_breakdown": funnel.RevenueBreakdown(in),
					"finance":           funnel.Finance(in),
				})
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Revenue\t%.2f\n", d.TotalRevenue)
			fmt.Fprintf(tw, "Sales page conversion\t%.2f%%\n", d.SalesPageConversion)
			fmt.Fprintf(tw, "Checkout conversion\t%.2f%%\n", d.CheckoutConversion)
			fmt.Fprintf(tw, "Order bump rate\t%.2f%%\n", d.OrderBumpRate)
			fmt.Fprintf(tw, "ROI\t%.2f\n", d.CurrentROI)
			fmt.Fprintf(tw, "CPC\t%.2f\n", d.CurrentCPC)
			fmt.Fprintf(tw, "Max CPC\t%.2f\n", d.MaxCPC)
			for _, m := range d.Messages {
				fmt.Fprintf(tw, "[%s]\t%s\n", m.Type, m.Message)
			}
			return tw.Flush()
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Renders a localized report for a funnel snapshot",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{
				Name:  "locale",
				Usage: "BCP 47 locale for numbers and currency (defaults to INSIGHTS_REPORT_LOCALE)",
			},
			&cli.StringFlag{
				Name:  "title",
				Value: "Funnel report",
			},
		},
		Action: func(c *cli.Context) error {
			in, err := readInput(c.String("file"))
			if err != nil {
				return err
			}

			locale := c.String("locale")
			if locale == "" {
				locale = config.GetConfig().ReportLocale
			}

			r, err := report.Build(in, report.Options{
				Title:  c.String("title"),
				Locale: locale,
				Now:    time.Now(),
			})
			if err != nil {
				return err
			}

			if wantJSON(c) {
				return writeJSON(os.Stdout, r)
			}
			return r.WriteText(os.Stdout)
		},
	}
}

func baselineCommand() *cli.Command {
	return &cli.Command{
		Name:  "baseline",
		Usage: "Shows an owner's historical baseline for a period",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Required: true},
			&cli.StringFlag{Name: "start", Usage: "Period start (ISO-8601)"},
			&cli.StringFlag{Name: "end", Usage: "Period end (ISO-8601)"},
			&cli.StringFlag{Name: "range", Usage: "Preset range such as last_30_days"},
		},
		Action: withApp(func(c *cli.Context, app *internal.Application) error {
			period, err := timeframe.NewPeriodParser().Parse(timeframe.PeriodParserParams{
				Range:    c.String("range"),
				FromDate: c.String("start"),
				ToDate:   c.String("end"),
			})
			if err != nil {
				return err
			}

			owner := c.String("owner")
			list, err := analyses.ListForOwner(app.DBManager.GetConnection(), owner, config.GetConfig().HistoryLimit)
			if err != nil {
				return err
			}

			records := analyses.ToRecords(list, cartridge.NewLogger(config.GetConfig(), nil))
			eligible := history.Eligible(period, records)
			baseline := history.Aggregate(period, records)

			log.WithFields(logrus.Fields{
				"owner":    owner,
				"history":  len(records),
				"eligible": len(eligible),
			}).Debug("Computed baseline")

			if wantJSON(c) {
				return writeJSON(os.Stdout, map[string]any{
					"baseline": baseline,
					"period":   period,
				})
			}

			if baseline == nil {
				fmt.Printf("No history outside %s for %s\n", period, owner)
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Period\t%s\n", period)
			fmt.Fprintf(tw, "Analyses\t%d\n", len(eligible))
			fmt.Fprintf(tw, "Revenue\t%.2f\n", baseline.Revenue)
			fmt.Fprintf(tw, "Profit\t%.2f\n", baseline.Profit)
			fmt.Fprintf(tw, "ROI\t%.2f\n", baseline.ROI)
			fmt.Fprintf(tw, "CAC\t%.2f\n", baseline.CAC)
			fmt.Fprintf(tw, "LTV\t%.2f\n", baseline.LTV)
			fmt.Fprintf(tw, "AOV\t%.2f\n", baseline.AverageOrderValue)
			return tw.Flush()
		}),
	}
}

func retentionCommand() *cli.Command {
	return &cli.Command{
		Name:  "retention",
		Usage: "Deletes analyses older than the retention window",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Override INSIGHTS_ANALYSES_RETENTION_DAYS",
			},
		},
		Action: withApp(func(c *cli.Context, app *internal.Application) error {
			days := config.GetConfig().AnalysesRetentionDays
			if !c.IsSet("days") {
				log.WithField("days", days).Info("Running retention")
				return app.Scheduler.RunRetention()
			}

			days = c.Int("days")
			job := jobs.NewRetentionJob(app.DBManager, cartridge.NewLogger(config.GetConfig(), nil), days)
			if !job.Enabled() {
				log.Warn("Retention is disabled, nothing to do")
				return nil
			}

			log.WithField("days", days).Info("Running retention")
			return job.Run()
		}),
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Reads or changes default settings",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Prints one setting",
				Flags: []cli.Flag{&cli.StringFlag{Name: "key", Required: true}},
				Action: withApp(func(c *cli.Context, app *internal.Application) error {
					value, err := settings.GetSetting(app.DBManager.GetConnection(), c.String("key"))
					if err != nil {
						return err
					}
					fmt.Println(value)
					return nil
				}),
			},
			{
				Name:  "set",
				Usage: "Creates or updates one setting",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true},
					&cli.StringFlag{Name: "value", Required: true},
				},
				Action: withApp(func(c *cli.Context, app *internal.Application) error {
					key, value := c.String("key"), c.String("value")
					if err := settings.CreateOrUpdateSetting(app.DBManager.GetConnection(), key, value); err != nil {
						return err
					}
					log.WithFields(logrus.Fields{"key": key, "value": value}).Info("Setting saved")
					return nil
				}),
			},
		},
	}
}
