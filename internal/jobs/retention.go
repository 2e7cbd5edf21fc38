package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"insights/internal/analyses"
)

const retentionBatchSize = 500

// RetentionJob removes saved analyses older than the retention period.
// Drafts are never removed.
type RetentionJob struct {
	dbManager     cartridge.DBManager
	logger        *slog.Logger
	retentionDays int
	batchSize     int
	batchPause    time.Duration
	now           func() time.Time
}

func NewRetentionJob(dbManager cartridge.DBManager, logger *slog.Logger, retentionDays int) *RetentionJob {
	return &RetentionJob{
		dbManager:     dbManager,
		logger:        logger,
		retentionDays: retentionDays,
		batchSize:     retentionBatchSize,
		batchPause:    100 * time.Millisecond,
		now:           time.Now,
	}
}

// Enabled is false when retention days is zero.
func (j *RetentionJob) Enabled() bool {
	return j.retentionDays > 0
}

func (j *RetentionJob) Run() error {
	if !j.Enabled() {
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)

	count, err := analyses.CountOlderThan(db, cutoff)
	if err != nil {
		j.logger.Error("Failed to count expired analyses", slog.Any("error", err))
		return err
	}
	if count == 0 {
		j.logger.Debug("No expired analyses to clean up")
		return nil
	}

	var total int64
	for {
		var deleted int64
		err := sqlite.PerformWrite(j.logger, db, func(tx *gorm.DB) error {
			n, err := analyses.DeleteOlderThan(tx, cutoff, j.batchSize)
			deleted = n
			return err
		})
		if err != nil {
			j.logger.Error("Failed to delete expired analyses",
				slog.Any("error", err),
				slog.Int64("deleted_so_far", total))
			return err
		}

		total += deleted
		if deleted < int64(j.batchSize) {
			break
		}
		time.Sleep(j.batchPause)
	}

	j.logger.Info("Cleaned up expired analyses",
		slog.Int64("deleted_count", total),
		slog.Int("retention_days", j.retentionDays),
		slog.Time("cutoff", cutoff))

	return nil
}
