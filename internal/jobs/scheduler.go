package jobs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/robfig/cron/v3"

	"insights/internal/config"
)

const retentionJobName = "analyses_retention"

// Scheduler runs periodic maintenance on a cron schedule.
type Scheduler struct {
	logger    *slog.Logger
	cfg       *config.Config
	cron      *cron.Cron
	isRunning bool

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	retention *RetentionJob
}

func NewScheduler(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.CleanupSchedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
	}

	return &Scheduler{
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(),
		retention: NewRetentionJob(dbManager, logger, cfg.AnalysesRetentionDays),
	}, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	start := time.Now()
	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
		return
	}
	s.logger.Debug("Job finished", slog.String("job", jobName), slog.Duration("took", time.Since(start)))
}

// Start registers the jobs and starts the cron runner.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	if s.retention.Enabled() {
		_, err := s.cron.AddFunc(s.cfg.CleanupSchedule, func() {
			s.executeJobSafely(retentionJobName, s.retention.Run)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", retentionJobName, err)
		}
		s.logger.Info("Scheduled analyses retention",
			slog.String("schedule", s.cfg.CleanupSchedule),
			slog.Int("retention_days", s.cfg.AnalysesRetentionDays))
	} else {
		s.logger.Info("Analyses retention is disabled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Background jobs started")
	return nil
}

// Stop halts the cron runner and waits for a running job to return.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	if !s.isRunning {
		return
	}
	s.logger.Info("Stopping background jobs...")

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("Timed out waiting for background jobs to finish")
	}

	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunRetention triggers the retention job outside the schedule.
func (s *Scheduler) RunRetention() error {
	var err error
	s.executeJobSafely(retentionJobName, func() error {
		err = s.retention.Run()
		return err
	})
	return err
}
