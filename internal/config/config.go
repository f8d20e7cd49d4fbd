package config

import (
	"os"
	"strconv"
	"strings"

	"termarea/internal/errors"
)

// Source backends
const (
	SourcePostgres = "postgres"
	SourceExcel    = "excel"
)

// Tracker backends
const (
	TrackerPostgres = "postgres"
	TrackerFile     = "file"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	Tracker  TrackerConfig
	Report   ReportConfig
	Server   ServerConfig
	LogLevel string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// SourceConfig selects where annotations are read from
type SourceConfig struct {
	Backend string
	File    string // workbook path for the excel backend
}

// TrackerConfig selects where job progress and artifacts go
type TrackerConfig struct {
	Backend     string
	ArtifactDir string
}

// ReportConfig holds the output artifact naming
type ReportConfig struct {
	WorkDir  string
	Filename string
	Key      string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Source: SourceConfig{
			Backend: strings.ToLower(getEnvOrDefault("SOURCE", SourcePostgres)),
			File:    os.Getenv("SOURCE_FILE"),
		},
		Tracker: TrackerConfig{
			Backend:     strings.ToLower(getEnvOrDefault("TRACKER", TrackerFile)),
			ArtifactDir: getEnvOrDefault("ARTIFACT_DIR", "./artifacts"),
		},
		Report: ReportConfig{
			WorkDir:  getEnvOrDefault("WORK_DIR", "."),
			Filename: getEnvOrDefault("REPORT_FILENAME", "stat-area.csv"),
			Key:      getEnvOrDefault("REPORT_KEY", "Area CSV report"),
		},
		Server: ServerConfig{
			Port:    strconv.Itoa(getEnvIntOrDefault("PORT", 8080)),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Validate checks backend selections and their required settings
func (c *Config) Validate() error {
	switch c.Source.Backend {
	case SourcePostgres:
		if c.Database.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres source")
		}
	case SourceExcel:
		if c.Source.File == "" {
			return errors.ConfigInvalid("SOURCE_FILE is required for the excel source")
		}
	default:
		return errors.ConfigInvalid("unknown SOURCE " + strconv.Quote(c.Source.Backend))
	}

	switch c.Tracker.Backend {
	case TrackerPostgres:
		if c.Database.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres tracker")
		}
	case TrackerFile:
		if c.Tracker.ArtifactDir == "" {
			return errors.ConfigInvalid("ARTIFACT_DIR is required for the file tracker")
		}
	default:
		return errors.ConfigInvalid("unknown TRACKER " + strconv.Quote(c.Tracker.Backend))
	}

	if c.Report.Filename == "" {
		return errors.ConfigInvalid("REPORT_FILENAME cannot be empty")
	}
	return nil
}

// NeedsDatabase reports whether any configured backend talks to postgres
func (c *Config) NeedsDatabase() bool {
	return c.Source.Backend == SourcePostgres || c.Tracker.Backend == TrackerPostgres
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
