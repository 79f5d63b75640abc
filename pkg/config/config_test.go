package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantGov/regcensus-api-go/pkg/config"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"REGCENSUS_BASE_URL", "REGCENSUS_TIMEOUT", "REGCENSUS_RATE_LIMIT", "REGCENSUS_BURST",
		"REGCENSUS_MAX_RETRIES", "REGCENSUS_RETRY_BACKOFF", "REGCENSUS_PAGE_SIZE", "REGCENSUS_CONCURRENCY",
		"REGCENSUS_MAX_CELLS", "REGCENSUS_MAX_PERIODS", "REGCENSUS_MAX_JURISDICTIONS", "REGCENSUS_MAX_SERIES",
		"REGCENSUS_MAX_DATES",
		"REGCENSUS_CACHE_TTL", "REGCENSUS_CACHE_ENTRIES", "REGCENSUS_REDIS_URL", "REGCENSUS_LOG_LEVEL",
		"REGCENSUS_TELEMETRY", "OTEL_EXPORTER_OTLP_ENDPOINT", "REGCENSUS_OTLP_INSECURE", "REGCENSUS_SAMPLE_RATE",
	} {
		t.Setenv(name, "")
	}
}

// TestLoad_Defaults verifies the client runs against the public service
// with nothing configured.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.quantgov.org", cfg.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 5000, cfg.PageSize)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Zero(t, cfg.MaxRetries, "the client does not retry unless asked")
	assert.Equal(t, request.DefaultMaxDates, cfg.Limits.MaxDates, "document date lists are split by default")
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGCENSUS_BASE_URL", "http://localhost:9000")
	t.Setenv("REGCENSUS_TIMEOUT", "5s")
	t.Setenv("REGCENSUS_MAX_RETRIES", "3")
	t.Setenv("REGCENSUS_CONCURRENCY", "4")
	t.Setenv("REGCENSUS_MAX_CELLS", "100000")
	t.Setenv("REGCENSUS_MAX_DATES", "31")
	t.Setenv("REGCENSUS_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("REGCENSUS_LOG_LEVEL", "debug")
	t.Setenv("REGCENSUS_TELEMETRY", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 100000, cfg.Limits.MaxCells)
	assert.Equal(t, 31, cfg.Limits.MaxDates)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.True(t, cfg.Telemetry.Enabled)

	level, err := config.ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGCENSUS_PAGE_SIZE", "lots")
	t.Setenv("REGCENSUS_TIMEOUT", "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGCENSUS_PAGE_SIZE")
	assert.Contains(t, err.Error(), "REGCENSUS_TIMEOUT")
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"no base url":       func(c *config.Config) { c.BaseURL = "" },
		"zero concurrency":  func(c *config.Config) { c.Concurrency = 0 },
		"negative retries":  func(c *config.Config) { c.MaxRetries = -1 },
		"sample rate":       func(c *config.Config) { c.Telemetry.SampleRate = 2 },
		"unknown log level": func(c *config.Config) { c.LogLevel = "LOUD" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, config.Default().Validate())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "regcensus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://regdata.internal
timeout: 90s
page_size: 1000
concurrency: 2
limits:
  max_cells: 50000
  max_periods: 10
cache_ttl: 10m
telemetry:
  enabled: true
  otlp_endpoint: collector:4317
  sample_rate: 0.25
`), 0o600))

	t.Setenv("REGCENSUS_CONCURRENCY", "8")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://regdata.internal", cfg.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 1000, cfg.PageSize)
	assert.Equal(t, 8, cfg.Concurrency, "environment wins over the file")
	assert.Equal(t, 50000, cfg.Limits.MaxCells)
	assert.Equal(t, 10, cfg.Limits.MaxPeriods)
	assert.Equal(t, request.DefaultMaxDates, cfg.Limits.MaxDates)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, "regcensus-client", cfg.Telemetry.ServiceName, "unset keys keep defaults")
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := config.LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("base_urll: http://typo\n"), 0o600))
	_, err = config.LoadFile(unknown)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	cfg, err := config.LoadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, config.Default().BaseURL, cfg.BaseURL)
}
