// Package config loads client settings from REGCENSUS_* environment
// variables and optional YAML files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/QuantGov/regcensus-api-go/pkg/observability"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

// Config holds client configuration.
type Config struct {
	BaseURL      string               `yaml:"base_url"`
	Timeout      time.Duration        `yaml:"timeout"`
	RateLimit    float64              `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst        int                  `yaml:"burst"`
	MaxRetries   int                  `yaml:"max_retries"`
	RetryBackoff time.Duration        `yaml:"retry_backoff"`
	PageSize     int                  `yaml:"page_size"`
	Concurrency  int                  `yaml:"concurrency"`
	Limits       request.Limits       `yaml:"limits"`
	CacheTTL     time.Duration        `yaml:"cache_ttl"`
	CacheEntries int                  `yaml:"cache_entries"`
	RedisURL     string               `yaml:"redis_url"`
	LogLevel     string               `yaml:"log_level"`
	Telemetry    observability.Config `yaml:"telemetry"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		BaseURL:      transport.DefaultBaseURL,
		Timeout:      60 * time.Second,
		RateLimit:    2,
		Burst:        4,
		MaxRetries:   0,
		RetryBackoff: 500 * time.Millisecond,
		PageSize:     transport.DefaultPageSize,
		Concurrency:  1,
		Limits:       request.DefaultLimits(),
		CacheTTL:     time.Hour,
		CacheEntries: 256,
		LogLevel:     "INFO",
		Telemetry:    *observability.DefaultConfig(),
	}
}

// Load returns Default overlaid with environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: not a duration", name, v))
				return
			}
			*dst = d
		}
	}
	float := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: not a number", name, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("REGCENSUS_BASE_URL", &c.BaseURL)
	dur("REGCENSUS_TIMEOUT", &c.Timeout)
	float("REGCENSUS_RATE_LIMIT", &c.RateLimit)
	num("REGCENSUS_BURST", &c.Burst)
	num("REGCENSUS_MAX_RETRIES", &c.MaxRetries)
	dur("REGCENSUS_RETRY_BACKOFF", &c.RetryBackoff)
	num("REGCENSUS_PAGE_SIZE", &c.PageSize)
	num("REGCENSUS_CONCURRENCY", &c.Concurrency)
	num("REGCENSUS_MAX_CELLS", &c.Limits.MaxCells)
	num("REGCENSUS_MAX_PERIODS", &c.Limits.MaxPeriods)
	num("REGCENSUS_MAX_JURISDICTIONS", &c.Limits.MaxJurisdictions)
	num("REGCENSUS_MAX_SERIES", &c.Limits.MaxSeries)
	num("REGCENSUS_MAX_DATES", &c.Limits.MaxDates)
	dur("REGCENSUS_CACHE_TTL", &c.CacheTTL)
	num("REGCENSUS_CACHE_ENTRIES", &c.CacheEntries)
	str("REGCENSUS_REDIS_URL", &c.RedisURL)
	str("REGCENSUS_LOG_LEVEL", &c.LogLevel)
	boolean("REGCENSUS_TELEMETRY", &c.Telemetry.Enabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	boolean("REGCENSUS_OTLP_INSECURE", &c.Telemetry.Insecure)
	float("REGCENSUS_SAMPLE_RATE", &c.Telemetry.SampleRate)

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects settings no client could run with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("config: base_url is required")
	case c.Timeout < 0:
		return fmt.Errorf("config: timeout must not be negative")
	case c.RateLimit < 0:
		return fmt.Errorf("config: rate_limit must not be negative")
	case c.MaxRetries < 0:
		return fmt.Errorf("config: max_retries must not be negative")
	case c.PageSize < 0:
		return fmt.Errorf("config: page_size must not be negative")
	case c.Concurrency < 1:
		return fmt.Errorf("config: concurrency must be at least 1")
	case c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1:
		return fmt.Errorf("config: telemetry.sample_rate must be within [0, 1]")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", s, err)
	}
	return l, nil
}
