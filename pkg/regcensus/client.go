// Package regcensus is the client for the regulatory-data service. A Client
// wires the query pipeline (normalize, request, transport, assemble) to the
// service's metadata endpoints and the output sinks.
package regcensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/QuantGov/regcensus-api-go/pkg/assemble"
	"github.com/QuantGov/regcensus-api-go/pkg/cache"
	"github.com/QuantGov/regcensus-api-go/pkg/config"
	"github.com/QuantGov/regcensus-api-go/pkg/metadata"
	"github.com/QuantGov/regcensus-api-go/pkg/observability"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
	"github.com/QuantGov/regcensus-api-go/pkg/sink"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

// Metadata endpoint paths.
const (
	PathDocumentTypes = "/documenttypes"
	PathSeries        = "/dataseries"
	PathAgencies      = "/agencies"
	PathAgencyKeyword = "/agencies-keyword"
	PathJurisdictions = "/jurisdictions/"
	PathLabels        = "/labels"
	PathClusters      = "/clusters"
	PathVersion       = "/version"
	PathDocumentation = "/documentation"
	PathDatafinder    = "/datafinder"
)

// Client resolves queries against the service. It is safe for concurrent use.
type Client struct {
	fetcher     transport.Fetcher
	limits      request.Limits
	pageSize    int
	concurrency int
	obs         *observability.Provider
	logger      *slog.Logger
	store       cache.Store
	cacheTTL    time.Duration
	sinkOpts    []sink.Option
	httpOpts    []transport.Option

	mu    sync.Mutex
	index *metadata.Index
}

// Option configures a Client.
type Option func(*Client)

// WithFetcher replaces the HTTP fetcher, typically with a fake in tests.
func WithFetcher(f transport.Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithLimits bounds the size of a single request, replacing
// request.DefaultLimits.
func WithLimits(l request.Limits) Option {
	return func(c *Client) { c.limits = l }
}

// WithPageSize sets the page length used for automatic pagination. Zero
// disables pagination.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithConcurrency issues up to n partitions of one query in parallel.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithIndex injects pre-fetched metadata instead of loading it on first use.
func WithIndex(ix *metadata.Index) Option {
	return func(c *Client) { c.index = ix }
}

// WithCache serves metadata responses from store for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.store = store
		c.cacheTTL = ttl
	}
}

// WithObservability attaches tracing and metrics.
func WithObservability(p *observability.Provider) Option {
	return func(c *Client) {
		if p != nil {
			c.obs = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransportOptions passes options to the default HTTP fetcher.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, opts...) }
}

// WithSinkOptions passes options to sinks opened for downloads.
func WithSinkOptions(opts ...sink.Option) Option {
	return func(c *Client) { c.sinkOpts = append(c.sinkOpts, opts...) }
}

// New returns a client for baseURL. An empty baseURL selects the public
// service.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		limits:      request.DefaultLimits(),
		pageSize:    transport.DefaultPageSize,
		concurrency: 1,
		obs:         observability.Disabled(),
		logger:      slog.Default().With("component", "regcensus"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		if baseURL == "" {
			baseURL = transport.DefaultBaseURL
		}
		httpOpts := append([]transport.Option{transport.WithObservability(c.obs)}, c.httpOpts...)
		f, err := transport.NewHTTPFetcher(baseURL, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		c.fetcher = f
	}
	if c.store != nil {
		c.fetcher = cache.NewFetcher(c.fetcher, c.store, c.cacheTTL)
	}
	return c, nil
}

// NewFromConfig builds a client from cfg: HTTP transport settings, request
// limits, a Redis or in-memory metadata cache and telemetry.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs := observability.Disabled()
	if cfg.Telemetry.Enabled {
		p, err := observability.New(ctx, &cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		obs = p
	}

	var store cache.Store
	switch {
	case cfg.RedisURL != "":
		rs, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("open cache: %w", err)
		}
		store = rs
	case cfg.CacheEntries > 0 && cfg.CacheTTL > 0:
		store = cache.NewMemoryStore(cfg.CacheEntries)
	}

	base := []Option{
		WithObservability(obs),
		WithLimits(cfg.Limits),
		WithPageSize(cfg.PageSize),
		WithConcurrency(cfg.Concurrency),
		WithTransportOptions(
			transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			transport.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.Burst),
			transport.WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
		),
	}
	if store != nil {
		base = append(base, WithCache(store, cfg.CacheTTL))
	}
	c, err := New(cfg.BaseURL, append(base, opts...)...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return c, nil
}

// Close releases the cache and flushes telemetry.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if err := c.obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	return errors.Join(errs...)
}

// LoadIndex fetches jurisdictions and series and builds a fresh index.
func (c *Client) LoadIndex(ctx context.Context) (*metadata.Index, error) {
	jurisdictions, err := c.ListJurisdictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jurisdictions: %w", err)
	}
	series, err := c.listSeries(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	ix, err := metadata.New(jurisdictions, series)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return ix, nil
}

// Index returns the client's metadata index, loading it on first use.
func (c *Client) Index(ctx context.Context) (*metadata.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index != nil {
		return c.index, nil
	}
	ix, err := c.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	c.index = ix
	return ix, nil
}

// indexWithIndustries returns an index that carries the industry code table
// for level, fetching it when missing.
func (c *Client) indexWithIndustries(ctx context.Context, level int) (*metadata.Index, error) {
	ix, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}
	if ix.HasIndustries(level) {
		return ix, nil
	}

	industries, err := c.ListIndustries(ctx, IndustryFilter{Level: level})
	if err != nil {
		return nil, fmt.Errorf("load industries: %w", err)
	}
	coded := make([]regdata.Industry, 0, len(industries))
	seen := make(map[string]bool, len(industries))
	for _, ind := range industries {
		if ind.Code == "" || seen[ind.Code] {
			continue
		}
		seen[ind.Code] = true
		coded = append(coded, ind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index.HasIndustries(level) {
		return c.index, nil
	}
	next, err := c.index.Extend(metadata.WithIndustries(level, coded))
	if err != nil {
		return nil, fmt.Errorf("index industries: %w", err)
	}
	c.index = next
	return next, nil
}

// get fetches one metadata endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	return c.fetcher.Fetch(ctx, request.Descriptor{Method: http.MethodGet, Path: path, Params: params})
}

// list fetches path and decodes its records into T. Records that cannot be
// decoded are skipped with a warning.
func list[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	out, skipped, err := assemble.DecodeInto[T](body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "skipped malformed records", "path", path, "skipped", skipped)
	}
	return out, nil
}
