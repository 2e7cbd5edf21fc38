// Package analyses stores funnel snapshots together with their diagnostics.
package analyses

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"insights/internal/funnel"
	"insights/internal/history"
)

var (
	ErrOwnerRequired    = errors.New("owner id is required")
	ErrAnalysisNotFound = gorm.ErrRecordNotFound
)

// Analysis is a saved funnel snapshot. Draft rows hold the autosaved
// working copy, at most one per owner, and are excluded from history.
type Analysis struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID    string     `gorm:"uniqueIndex;size:36;not null" json:"id"`
	OwnerID     string     `gorm:"not null;size:255;index:idx_analyses_owner_created" json:"ownerId"`
	Name        string     `gorm:"size:255" json:"name"`
	Draft       bool       `gorm:"not null;default:false" json:"draft"`
	Input       Snapshot   `gorm:"type:text;not null" json:"input"`
	Diagnostics Snapshot   `gorm:"type:text" json:"diagnostics"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_analyses_owner_created" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Analysis) TableName() string {
	return "analyses"
}

// build calculates diagnostics and fills the snapshot columns of a.
func (a *Analysis) build(in funnel.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	in = in.Normalize()

	inputSnapshot, err := NewSnapshot(in)
	if err != nil {
		return fmt.Errorf("failed to encode input: %w", err)
	}
	diagnostics := funnel.Calculate(in)
	diagnosticsSnapshot, err := NewSnapshot(diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	a.Input = inputSnapshot
	a.Diagnostics = diagnosticsSnapshot
	a.StartDate = in.StartDate
	a.EndDate = in.EndDate
	return nil
}

// Create stores a new analysis for owner.
func Create(db *gorm.DB, logger *slog.Logger, ownerID, name string, in funnel.Input) (*Analysis, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	analysis := &Analysis{
		PublicID:  uuid.NewString(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := analysis.build(in); err != nil {
		return nil, err
	}
	if analysis.Name == "" {
		analysis.Name = defaultName(in, now)
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(analysis).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}
	return analysis, nil
}

// SaveDraft replaces the owner's working copy.
func SaveDraft(db *gorm.DB, logger *slog.Logger, ownerID, name string, in funnel.Input) (*Analysis, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	draft := &Analysis{Name: strings.TrimSpace(name)}
	if err := draft.build(in); err != nil {
		return nil, err
	}
	if draft.Name == "" {
		draft.Name = "Draft"
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var existing Analysis
		err := tx.Where("owner_id = ? AND draft = ?", ownerID, true).First(&existing).Error
		now := time.Now().UTC()

		if errors.Is(err, gorm.ErrRecordNotFound) {
			draft.PublicID = uuid.NewString()
			draft.OwnerID = ownerID
			draft.Draft = true
			draft.CreatedAt = now
			draft.UpdatedAt = now
			return tx.Create(draft).Error
		}
		if err != nil {
			return err
		}

		existing.Name = draft.Name
		existing.Input = draft.Input
		existing.Diagnostics = draft.Diagnostics
		existing.StartDate = draft.StartDate
		existing.EndDate = draft.EndDate
		existing.UpdatedAt = now
		*draft = existing
		return tx.Model(&existing).
			Select("name", "input", "diagnostics", "start_date", "end_date", "updated_at").
			Updates(&existing).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// ListForOwner returns saved (non-draft) analyses, newest first.
func ListForOwner(db *gorm.DB, ownerID string, limit int) ([]Analysis, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	var list []Analysis
	query := db.Where("owner_id = ? AND draft = ?", ownerID, false).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Latest returns the owner's most recently touched analysis, draft or not.
func Latest(db *gorm.DB, ownerID string) (*Analysis, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	var analysis Analysis
	err := db.Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Order("id DESC").
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// FindByPublicID retrieves one analysis scoped to owner.
func FindByPublicID(db *gorm.DB, ownerID, publicID string) (*Analysis, error) {
	var analysis Analysis
	err := db.Where("owner_id = ? AND public_id = ?", ownerID, publicID).First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Delete removes one analysis scoped to owner.
func Delete(db *gorm.DB, logger *slog.Logger, ownerID, publicID string) error {
	var affected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Where("owner_id = ? AND public_id = ?", ownerID, publicID).Delete(&Analysis{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOlderThan counts saved analyses created before cutoff.
func CountOlderThan(db *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	err := db.Model(&Analysis{}).
		Where("draft = ? AND created_at < ?", false, cutoff).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes up to limit saved analyses created before cutoff
// and returns how many were deleted. Unlike the other writes it does not
// call sqlite.PerformWrite: db must already be the transaction handed out
// by PerformWrite so a batch shares the caller's write lock.
func DeleteOlderThan(db *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	ids := db.Model(&Analysis{}).
		Select("id").
		Where("draft = ? AND created_at < ?", false, cutoff).
		Order("id").
		Limit(limit)

	result := db.Where("id IN (?)", ids).Delete(&Analysis{})
	return result.RowsAffected, result.Error
}

// Count returns the number of stored analyses and distinct owners.
func Count(db *gorm.DB) (analyses int64, owners int64, err error) {
	if err = db.Model(&Analysis{}).Count(&analyses).Error; err != nil {
		return 0, 0, err
	}
	err = db.Model(&Analysis{}).Distinct("owner_id").Count(&owners).Error
	return analyses, owners, err
}

// DecodeInput returns the stored funnel input.
func (a *Analysis) DecodeInput() (funnel.Input, error) {
	var in funnel.Input
	if err := a.Input.Decode(&in); err != nil {
		return funnel.Input{}, fmt.Errorf("analysis %s: invalid input snapshot: %w", a.PublicID, err)
	}
	return in, nil
}

// DecodeDiagnostics returns the stored diagnostics, or nil when absent.
func (a *Analysis) DecodeDiagnostics() (*funnel.Diagnostics, error) {
	if a.Diagnostics.IsEmpty() {
		return nil, nil
	}
	var d funnel.Diagnostics
	if err := a.Diagnostics.Decode(&d); err != nil {
		return nil, fmt.Errorf("analysis %s: invalid diagnostics snapshot: %w", a.PublicID, err)
	}
	return &d, nil
}

// ToRecords converts stored analyses to history records. Rows whose input
// cannot be decoded are skipped; unreadable diagnostics become nil so the
// aggregator leaves the row out.
func ToRecords(list []Analysis, logger *slog.Logger) []history.Record {
	records := make([]history.Record, 0, len(list))
	for i := range list {
		a := &list[i]
		in, err := a.DecodeInput()
		if err != nil {
			logger.Warn("Skipping malformed analysis", slog.String("analysis", a.PublicID), slog.Any("error", err))
			continue
		}
		d, err := a.DecodeDiagnostics()
		if err != nil {
			logger.Warn("Ignoring malformed diagnostics", slog.String("analysis", a.PublicID), slog.Any("error", err))
			d = nil
		}
		records = append(records, history.Record{Input: in, Diagnostics: d, CreatedAt: a.CreatedAt})
	}
	return records
}

func defaultName(in funnel.Input, now time.Time) string {
	if in.StartDate != nil && in.EndDate != nil {
		return fmt.Sprintf("Analysis %s to %s", in.StartDate.Format("2006-01-02"), in.EndDate.Format("2006-01-02"))
	}
	return "Analysis " + now.Format("2006-01-02 15:04")
}
