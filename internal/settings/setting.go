package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"insights/internal/funnel"
)

// Setting keys
const (
	KeyDefaultTargetROI      = "default_target_roi"
	KeyDefaultMonthlyRevenue = "default_monthly_revenue"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// SettingResponse represents a setting key-value pair for API responses
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Defaults are the values applied to submissions that leave them out.
type Defaults struct {
	TargetROI      float64 `json:"targetROI"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
}

var (
	numbersMu    sync.RWMutex
	numbersCache *cache.Cache[string, float64]
	numbersDB    *gorm.DB
)

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(dbConn *gorm.DB) error {
	defaults := []Setting{
		{Key: KeyDefaultTargetROI, Value: strconv.FormatFloat(funnel.DefaultTargetROI, 'f', -1, 64)},
		{Key: KeyDefaultMonthlyRevenue, Value: "0"},
	}
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, now, now).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	loadCache(dbConn, slog.Default())

	return err
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	if err := dbConn.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// UpdateSetting writes value under key, creating the row when missing.
func UpdateSetting(dbConn *gorm.DB, key string, value string) error {
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			if err := tx.Create(&Setting{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	clearCache()
	return nil
}

// CreateOrUpdateSetting validates numeric keys before storing them.
func CreateOrUpdateSetting(dbConn *gorm.DB, key string, value string) error {
	value = strings.TrimSpace(value)
	if isNumericKey(key) {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("setting %s must be a number: %w", key, err)
		}
		if n < 0 {
			return fmt.Errorf("setting %s must not be negative", key)
		}
	}
	return UpdateSetting(dbConn, key, value)
}

// GetFloat returns a numeric setting, served from the cache when it was
// loaded for the same connection.
func GetFloat(dbConn *gorm.DB, key string) (float64, error) {
	numbersMu.RLock()
	c, cachedDB := numbersCache, numbersDB
	numbersMu.RUnlock()

	if c != nil && cachedDB == dbConn {
		v, err := c.Get(key)
		if err != nil {
			return 0, fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		return v, nil
	}
	return readFloat(dbConn, key)
}

// LoadDefaults returns the stored defaults. Missing or unreadable values
// fall back to the built-in target ROI and no monthly goal.
func LoadDefaults(dbConn *gorm.DB) Defaults {
	d := Defaults{TargetROI: funnel.DefaultTargetROI}
	if v, err := GetFloat(dbConn, KeyDefaultTargetROI); err == nil && v > 0 {
		d.TargetROI = v
	}
	if v, err := GetFloat(dbConn, KeyDefaultMonthlyRevenue); err == nil && v > 0 {
		d.MonthlyRevenue = v
	}
	return d
}

// ApplyDefaults fills TargetROI and MonthlyRevenue when the submission
// leaves them at zero.
func ApplyDefaults(dbConn *gorm.DB, in funnel.Input) funnel.Input {
	if in.TargetROI > 0 && in.MonthlyRevenue > 0 {
		return in
	}
	d := LoadDefaults(dbConn)
	if in.TargetROI <= 0 {
		in.TargetROI = d.TargetROI
	}
	if in.MonthlyRevenue <= 0 {
		in.MonthlyRevenue = d.MonthlyRevenue
	}
	return in
}

// GetAllSettingsForDisplay lists every stored setting.
func GetAllSettingsForDisplay(db *gorm.DB) ([]SettingResponse, error) {
	var all []Setting
	if err := db.Order("key").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	result := make([]SettingResponse, 0, len(all))
	for _, setting := range all {
		result = append(result, SettingResponse{Key: setting.Key, Value: setting.Value})
	}
	return result, nil
}

func isNumericKey(key string) bool {
	return key == KeyDefaultTargetROI || key == KeyDefaultMonthlyRevenue
}

func readFloat(dbConn *gorm.DB, key string) (float64, error) {
	var value string
	err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, gorm.ErrRecordNotFound
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("setting %s is not numeric", key), err)
	}
	return n, nil
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetch := func(key string) (float64, error) {
		return readFloat(dbConn, key)
	}

	numbersMu.Lock()
	defer numbersMu.Unlock()
	numbersCache = cache.NewCache[string, float64](logger, 5*time.Minute, fetch)
	numbersDB = dbConn
}

func clearCache() {
	numbersMu.RLock()
	defer numbersMu.RUnlock()
	if numbersCache != nil {
		numbersCache.Clear()
	}
}
