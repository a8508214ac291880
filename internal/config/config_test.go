package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 2000, cfg.Store.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "processed", cfg.Build.OutputDir)
	assert.Equal(t, 1, cfg.Build.Concurrency)
	assert.Equal(t, "sec_companies_master.json", cfg.Combine.Output)
	assert.InDelta(t, 1_000_000, cfg.Filter.MinFunding, 0.001)
	assert.Equal(t, []string{"MA", "CA", "NY", "WA", "TX", "IL"}, cfg.Filter.States)
	assert.Equal(t, []string{"X0", "X1", "X2", "X3"}, cfg.Filter.ExcludedPlaceholders)
	assert.Contains(t, cfg.Filter.ExcludedIndustries, "pooled investment")
	assert.Equal(t, 5, cfg.Enrich.MaxPatterns)
	assert.Equal(t, 1000, cfg.Enrich.CheckpointInterval)
	assert.Equal(t, 100, cfg.Flatten.TopN)
	assert.Equal(t, "csv", cfg.Flatten.Format)
	assert.Contains(t, cfg.Fetch.BaseURL, "form-d-data-sets")
	assert.Equal(t, "formd-cli admin@example.com", cfg.Fetch.EDGARUserAgent)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: formd.db
log:
  level: debug
build:
  concurrency: 4
  reference_date: "2025-01-01"
filter:
  min_funding: 5000000
  states: [MA]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Build.Concurrency)
	assert.Equal(t, "2025-01-01", cfg.Build.ReferenceDate)
	assert.InDelta(t, 5_000_000, cfg.Filter.MinFunding, 0.001)
	assert.Equal(t, []string{"MA"}, cfg.Filter.States)
	// Defaults still apply for unset values
	assert.Equal(t, 1000, cfg.Enrich.CheckpointInterval)
	assert.True(t, cfg.StoreEnabled())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FORMD_STORE_DRIVER", "postgres")
	t.Setenv("FORMD_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FORMD_ENRICH_CHECKPOINT_INTERVAL", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Enrich.CheckpointInterval)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "none"
	cfg.Build.Concurrency = 1
	cfg.Filter.MinFunding = 1_000_000
	cfg.Filter.States = []string{"MA"}
	cfg.Enrich.MaxPatterns = 5
	cfg.Enrich.CheckpointInterval = 1000
	cfg.Flatten.TopN = 100
	cfg.Flatten.Format = "csv"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"build ok", "build", func(*Config) {}, ""},
		{"build concurrency zero", "build", func(c *Config) { c.Build.Concurrency = 0 }, "build.concurrency"},
		{"build bad reference date", "build", func(c *Config) { c.Build.ReferenceDate = "01/02/2025" }, "reference_date"},
		{"filter ok", "filter", func(*Config) {}, ""},
		{"filter negative floor", "filter", func(c *Config) { c.Filter.MinFunding = -1 }, "min_funding"},
		{"filter no states", "filter", func(c *Config) { c.Filter.States = nil }, "filter.states"},
		{"enrich ok", "enrich", func(*Config) {}, ""},
		{"enrich zero interval", "enrich", func(c *Config) { c.Enrich.CheckpointInterval = 0 }, "checkpoint_interval"},
		{"flatten ok", "flatten", func(*Config) {}, ""},
		{"flatten bad format", "flatten", func(c *Config) { c.Flatten.Format = "parquet" }, "flatten.format"},
		{"store disabled", "store", func(*Config) {}, "store.driver must be sqlite or postgres"},
		{"store missing url", "store", func(c *Config) { c.Store.Driver = "sqlite" }, "database_url is required"},
		{"store ok", "store", func(c *Config) { c.Store.Driver = "postgres"; c.Store.DatabaseURL = "postgres://x" }, ""},
		{"unknown mode", "serve", func(*Config) {}, "unknown mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReferenceTime(t *testing.T) {
	cfg := validDefaults()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := cfg.ReferenceTime(now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	cfg.Build.ReferenceDate = "2025-06-30"
	got, err = cfg.ReferenceTime(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), got)

	cfg.Build.ReferenceDate = "junk"
	_, err = cfg.ReferenceTime(now)
	assert.Error(t, err)
}
