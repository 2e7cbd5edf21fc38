// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

const defaultPrivateKey = "88888888888888888888888888888888"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Analysis history
	HistoryLimit          int `mapstructure:"historylimit"`
	AutosaveDelaySeconds  int `mapstructure:"autosavedelayseconds"`
	AnalysesRetentionDays int `mapstructure:"analysesretentiondays"`

	// Cron expression for the retention job
	CleanupSchedule string `mapstructure:"cleanupschedule"`

	// Baseline cache (redis)
	CacheEnabled            bool   `mapstructure:"cacheenabled"`
	RedisURL                string `mapstructure:"redisurl"`
	BaselineCacheTTLSeconds int    `mapstructure:"baselinecachettlseconds"`

	ReportLocale string `mapstructure:"reportlocale"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		// A missing .env is fine, the environment may already be populated.
		_ = godotenv.Load()

		v := viper.New()

		v.SetDefault("appname", "insights")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", defaultPrivateKey)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("historylimit", 100)
		v.SetDefault("autosavedelayseconds", 2)
		v.SetDefault("analysesretentiondays", 365)
		v.SetDefault("cleanupschedule", "0 3 * * *")
		v.SetDefault("cacheenabled", false)
		v.SetDefault("redisurl", "redis://127.0.0.1:6379/0")
		v.SetDefault("baselinecachettlseconds", 60)
		v.SetDefault("reportlocale", "pt-BR")

		v.BindEnv("appname", "INSIGHTS_APP_NAME")
		v.BindEnv("appport", "INSIGHTS_APP_PORT")
		v.BindEnv("environment", "INSIGHTS_ENV")
		v.BindEnv("loglevel", "INSIGHTS_LOG_LEVEL")
		v.BindEnv("privatekey", "INSIGHTS_PRIVATE_KEY")
		v.BindEnv("storagepath", "INSIGHTS_STORAGE_PATH")
		v.BindEnv("publicdir", "INSIGHTS_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "INSIGHTS_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "INSIGHTS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "INSIGHTS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "INSIGHTS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "INSIGHTS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "INSIGHTS_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "INSIGHTS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "INSIGHTS_DB_MAX_IDLE_CONNS")
		v.BindEnv("historylimit", "INSIGHTS_HISTORY_LIMIT")
		v.BindEnv("autosavedelayseconds", "INSIGHTS_AUTOSAVE_DELAY_SECONDS")
		v.BindEnv("analysesretentiondays", "INSIGHTS_ANALYSES_RETENTION_DAYS")
		v.BindEnv("cleanupschedule", "INSIGHTS_CLEANUP_SCHEDULE")
		v.BindEnv("cacheenabled", "INSIGHTS_CACHE_ENABLED")
		v.BindEnv("redisurl", "INSIGHTS_REDIS_URL")
		v.BindEnv("baselinecachettlseconds", "INSIGHTS_BASELINE_CACHE_TTL_SECONDS")
		v.BindEnv("reportlocale", "INSIGHTS_REPORT_LOCALE")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultPrivateKey {
			log.Fatal("Production requires a unique INSIGHTS_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.DatabaseType != SQLiteDatabase {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	if c.AutosaveDelaySeconds < 0 {
		return fmt.Errorf("autosave delay cannot be negative, got %d", c.AutosaveDelaySeconds)
	}
	if c.AnalysesRetentionDays < 0 {
		return fmt.Errorf("analyses retention cannot be negative, got %d", c.AnalysesRetentionDays)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns MaxOpenConns, defaulting to 1 under test and 10 otherwise.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns MaxIdleConns, defaulting to 1 under test and 5 otherwise.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
