// Package transport issues request descriptors against the remote service.
// The core consumes it through the Fetcher interface; HTTPFetcher is the
// production implementation with rate limiting, optional retries, a circuit
// breaker and trace-context propagation.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/QuantGov/regcensus-api-go/pkg/observability"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
)

// DefaultBaseURL is the public regulatory-data service.
const DefaultBaseURL = "https://api.quantgov.org"

// RequestIDHeader carries a per-request id for correlating client and
// service logs.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 512 << 20

// Fetcher resolves one descriptor to a raw response body.
type Fetcher interface {
	Fetch(ctx context.Context, d request.Descriptor) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, d request.Descriptor) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, d request.Descriptor) ([]byte, error) {
	return f(ctx, d)
}

// HTTPFetcher performs GET requests against a base URL.
type HTTPFetcher struct {
	baseURL     *url.URL
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	breaker     *CircuitBreaker
	propagator  propagation.TextMapPropagator
	userAgent   string
	logger      *slog.Logger
	obs         *observability.Provider
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithRateLimit bounds request rate. A zero limit disables limiting.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(f *HTTPFetcher) {
		if r <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		f.limiter = rate.NewLimiter(r, max(1, burst))
	}
}

// WithRetries retries 5xx responses and network errors up to n times with
// exponential backoff starting at base.
func WithRetries(n int, base time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.maxRetries = max(0, n)
		f.backoffBase = base
	}
}

// WithCircuitBreaker opens after threshold consecutive failed fetches.
func WithCircuitBreaker(threshold int, resetTimeout time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.breaker = NewCircuitBreaker("regcensus", threshold, resetTimeout)
	}
}

// WithPropagator sets the trace-context propagator. Defaults to the global
// OpenTelemetry propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(f *HTTPFetcher) { f.propagator = p }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = l.With("component", "transport") }
}

// WithObservability records spans and RED metrics per fetch.
func WithObservability(p *observability.Provider) Option {
	return func(f *HTTPFetcher) { f.obs = p }
}

// NewHTTPFetcher returns a fetcher for baseURL. Defaults: 60s timeout, 2
// requests per second with burst 4, no retries, breaker after 5 failures.
func NewHTTPFetcher(baseURL string, opts ...Option) (*HTTPFetcher, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	f := &HTTPFetcher{
		baseURL:     u,
		client:      &http.Client{Timeout: 60 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second/2), 4),
		backoffBase: 200 * time.Millisecond,
		breaker:     NewCircuitBreaker("regcensus", 5, 30*time.Second),
		userAgent:   "regcensus-go",
		logger:      slog.Default().With("component", "transport"),
		obs:         observability.Disabled(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.propagator == nil {
		f.propagator = otel.GetTextMapPropagator()
	}
	return f, nil
}

// URL returns the absolute URL for d.
func (f *HTTPFetcher) URL(d request.Descriptor) string {
	u := *f.baseURL
	u.Path = f.baseURL.Path + d.Path
	u.RawQuery = d.Params.Encode()
	return u.String()
}

// Fetch issues d and returns the response body. Non-2xx responses and
// network failures are returned as *regerr.TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context, d request.Descriptor) (body []byte, err error) {
	page, _ := strconv.Atoi(d.Params.Get(request.ParamPage))
	ctx, finish := f.obs.TrackOperation(ctx, "regcensus.fetch", observability.FetchOperation(d.Path, d.Partition, page)...)
	defer func() { finish(err) }()

	target := f.URL(d)
	if !f.breaker.Allow() {
		return nil, &regerr.TransportError{URL: target, Message: "circuit breaker open"}
	}

	for attempt := 0; ; attempt++ {
		body, err = f.do(ctx, d, target)
		if err == nil {
			f.breaker.Success()
			return body, nil
		}
		if !retryable(err) || attempt >= f.maxRetries || ctx.Err() != nil {
			break
		}
		wait := backoff(f.backoffBase, attempt)
		f.logger.DebugContext(ctx, "retrying request", "url", target, "attempt", attempt+1, "wait", wait, "error", err)
		if werr := sleep(ctx, wait); werr != nil {
			err = &regerr.TransportError{URL: target, Message: "cancelled", Err: werr}
			break
		}
	}
	f.recordOutcome(err)
	return nil, err
}

// recordOutcome feeds a failed fetch to the breaker. Only failures worth
// retrying count against the service; a status response proves it is up.
func (f *HTTPFetcher) recordOutcome(err error) {
	var te *regerr.TransportError
	switch {
	case retryable(err):
		f.breaker.Failure()
	case errors.As(err, &te) && te.Status > 0:
		f.breaker.Success()
	default:
		f.breaker.Release()
	}
}

func (f *HTTPFetcher) do(ctx context.Context, d request.Descriptor, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &regerr.TransportError{URL: target, Message: "rate limiter", Err: err}
	}

	method := d.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &regerr.TransportError{URL: target, Message: "build request", Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	f.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	f.logger.DebugContext(ctx, "api call", "url", target, "request_id", requestID)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &regerr.TransportError{URL: target, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &regerr.TransportError{Status: resp.StatusCode, URL: target, Message: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &regerr.TransportError{
			Status:  resp.StatusCode,
			URL:     target,
			Message: ServiceMessage(body, resp.StatusCode),
		}
	}
	return body, nil
}

// ServiceMessage extracts the service's own error message from body: the
// "message" or "errorMessage" field of a JSON object (possibly encoded as a
// JSON string), else the trimmed body, else the status text.
func ServiceMessage(body []byte, status int) string {
	if msg, ok := ErrorPayload(body); ok {
		return msg
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(status)
}

// ErrorPayload reports whether body is a service error object and returns
// its message.
func ErrorPayload(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var inner string
		if json.Unmarshal(body, &inner) != nil || json.Unmarshal([]byte(inner), &obj) != nil {
			return "", false
		}
	}
	for _, key := range []string{"message", "errorMessage"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		return string(raw), true
	}
	return "", false
}

func retryable(err error) bool {
	var te *regerr.TransportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(te.Err, context.Canceled) || errors.Is(te.Err, context.DeadlineExceeded) {
		return false
	}
	return te.Status == 0 || te.Status >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
