// Package conf loads and holds the application settings.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/ay5710/cinesense/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
	Level   string // slog level name: debug, info, warn, error
}

// SQLiteSettings holds SQLite database settings
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to SQLite database file
}

// MySQLSettings holds MySQL database settings
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// PostgresSettings holds PostgreSQL database settings
type PostgresSettings struct {
	Enabled  bool   // true to enable PostgreSQL
	Username string // PostgreSQL username
	Password string // PostgreSQL password
	Database string // PostgreSQL database name
	Host     string // PostgreSQL host
	Port     string // PostgreSQL port
	SSLMode  string // PostgreSQL sslmode
}

// OutputSettings selects the storage backend
type OutputSettings struct {
	SQLite   SQLiteSettings
	MySQL    MySQLSettings
	Postgres PostgresSettings
}

// ScraperSettings holds the review source settings
type ScraperSettings struct {
	BaseURL   string        // base URL of the review site
	UserAgent string        // User-Agent header sent with every request
	Timeout   time.Duration // per-request timeout
}

// ClassifierSettings holds the sentiment classifier settings
type ClassifierSettings struct {
	Endpoint   string        // chat completions endpoint URL
	Model      string        // model name
	APIKey     string        // bearer token
	Timeout    time.Duration // per-call timeout
	TimeBudget time.Duration // wall-clock budget for one dispatch pass, 0 disables
}

// PipelineSettings holds orchestration settings
type PipelineSettings struct {
	Workers      int           // concurrent movie workers
	Staleness    time.Duration // re-scrape when last scrape is older than this
	LeaseTTL     time.Duration // per-movie processing lease duration
	ScanInterval time.Duration // interval between scans in watch mode
}

// BackupTargetConfig holds settings for a single backup target
type BackupTargetConfig struct {
	Type     string         // local, ftp, sftp
	Enabled  bool           // true to enable this target
	Settings map[string]any // target specific settings
}

// BackupSettings holds the backup task settings
type BackupSettings struct {
	Enabled     bool                 // true to enable backups
	SnapshotDir string               // local directory for snapshot staging
	KeepCount   int                  // number of snapshots retained per table
	Targets     []BackupTargetConfig // configured targets
}

// Settings is the root of the application configuration
type Settings struct {
	Debug bool // true to enable debug level logging

	Main struct {
		Name string    // node name, included in logs
		Log  LogConfig // main log file settings
	}

	Output     OutputSettings
	Scraper    ScraperSettings
	Classifier ClassifierSettings
	Pipeline   PipelineSettings
	Backup     BackupSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the configuration search paths for the current system.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-executable-path").
			Build()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-dir").
			Build()
	}

	configPaths = []string{
		filepath.Join(homeDir, ".config", "cinesense"),
		filepath.Dir(exePath),
		".",
	}

	return configPaths, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it first if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	loaded := settingsInstance != nil
	settingsMutex.RUnlock()

	if !loaded {
		if _, err := Load(); err != nil {
			log.Fatalf("Error loading settings: %v", err)
		}
	}
	return GetSettings()
}

// ValidateSettings checks the loaded settings for fatal misconfiguration.
func ValidateSettings(settings *Settings) error {
	enabled := 0
	if settings.Output.SQLite.Enabled {
		enabled++
	}
	if settings.Output.MySQL.Enabled {
		enabled++
	}
	if settings.Output.Postgres.Enabled {
		enabled++
	}
	if enabled != 1 {
		return errors.Newf("exactly one database backend must be enabled, got %d", enabled).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Pipeline.Workers < 1 {
		return errors.Newf("pipeline.workers must be at least 1, got %d", settings.Pipeline.Workers).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Backup.Enabled && settings.Backup.KeepCount < 1 {
		return errors.Newf("backup.keepcount must be at least 1, got %d", settings.Backup.KeepCount).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
