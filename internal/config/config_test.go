package config

import (
	"testing"

	"termarea/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"DATABASE_URL", "SOURCE", "SOURCE_FILE", "TRACKER", "ARTIFACT_DIR",
		"WORK_DIR", "REPORT_FILENAME", "REPORT_KEY", "PORT", "GIN_MODE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/annotations")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, cfg.Source.Backend)
	assert.Equal(t, TrackerFile, cfg.Tracker.Backend)
	assert.Equal(t, "./artifacts", cfg.Tracker.ArtifactDir)
	assert.Equal(t, "stat-area.csv", cfg.Report.Filename)
	assert.Equal(t, "Area CSV report", cfg.Report.Key)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.NeedsDatabase())
}

func TestLoadExcelSource(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE", "Excel")
	t.Setenv("SOURCE_FILE", "annotations.xlsx")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceExcel, cfg.Source.Backend)
	assert.Equal(t, "annotations.xlsx", cfg.Source.File)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres source without url", map[string]string{}},
		{"excel source without file", map[string]string{"SOURCE": "excel"}},
		{"unknown source", map[string]string{"SOURCE": "s3", "DATABASE_URL": "x"}},
		{"postgres tracker without url", map[string]string{"SOURCE": "excel", "SOURCE_FILE": "a.xlsx", "TRACKER": "postgres"}},
		{"unknown tracker", map[string]string{"DATABASE_URL": "x", "TRACKER": "ftp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
