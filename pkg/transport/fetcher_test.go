package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
)

func descriptor(path string, kv ...string) request.Descriptor {
	params := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Set(kv[i], kv[i+1])
	}
	return request.Descriptor{Method: http.MethodGet, Path: path, Params: params}
}

func newTestFetcher(t *testing.T, srv *httptest.Server, opts ...Option) *HTTPFetcher {
	t.Helper()
	opts = append([]Option{WithRateLimit(0, 0)}, opts...)
	f, err := NewHTTPFetcher(srv.URL, opts...)
	require.NoError(t, err)
	return f
}

func TestFetchSuccess(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/values", r.URL.Path)
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		_, _ = w.Write([]byte(`"[]"`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv, WithPropagator(propagation.TraceContext{}), WithUserAgent("test-agent"))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	body, err := f.Fetch(ctx, descriptor("/values", "series", "1,2", "jurisdiction", "38"))
	require.NoError(t, err)
	assert.Equal(t, `"[]"`, string(body))

	assert.Equal(t, "1,2", gotQuery.Get("series"))
	assert.Equal(t, "38", gotQuery.Get("jurisdiction"))
	assert.NotEmpty(t, gotHeader.Get(RequestIDHeader))
	assert.Equal(t, "test-agent", gotHeader.Get("User-Agent"))
	assert.Contains(t, gotHeader.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestFetchStatusErrorKeepsServiceMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "No data for jurisdiction 999"}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).Fetch(context.Background(), descriptor("/values"))
	require.Error(t, err)
	require.ErrorIs(t, err, regerr.ErrTransport)

	var te *regerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.Equal(t, "No data for jurisdiction 999", te.Message)
	assert.Contains(t, te.URL, "/values")
}

func TestFetchDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).Fetch(context.Background(), descriptor("/values"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var te *regerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), te.Message)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv, WithRetries(3, time.Millisecond))
	body, err := f.Fetch(context.Background(), descriptor("/values"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv, WithRetries(3, time.Millisecond)).Fetch(context.Background(), descriptor("/values"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f := newTestFetcher(t, srv)
	srv.Close()

	_, err := f.Fetch(context.Background(), descriptor("/values"))
	var te *regerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Status)
	assert.Error(t, te.Unwrap())
}

func TestFetchCircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv, WithCircuitBreaker(1, time.Hour))
	_, err := f.Fetch(context.Background(), descriptor("/values"))
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), descriptor("/values"))
	var te *regerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "circuit breaker open", te.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher(t, srv, WithRetries(3, time.Millisecond)).Fetch(ctx, descriptor("/values"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, regerr.ErrTransport))
}

func TestNewHTTPFetcherValidatesURL(t *testing.T) {
	_, err := NewHTTPFetcher("ftp://example.com")
	require.Error(t, err)

	f, err := NewHTTPFetcher("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/jurisdictions/", f.URL(descriptor("/jurisdictions/")))
}

func TestErrorPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"message", `{"message":"bad series"}`, "bad series", true},
		{"errorMessage", `{"errorMessage":"timeout"}`, "timeout", true},
		{"double encoded", `"{\"message\": \"bad year\"}"`, "bad year", true},
		{"records", `[{"series_id": 1}]`, "", false},
		{"encoded records", `"[{\"series_id\": 1}]"`, "", false},
		{"object without message", `{"series_id": 1}`, "", false},
		{"garbage", `<html>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ErrorPayload([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("test", 2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.Failure()
	assert.True(t, cb.Allow())
	cb.Failure()
	assert.False(t, cb.Allow())
	assert.Equal(t, "OPEN", cb.State())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, "HALF_OPEN", cb.State())

	cb.Failure()
	assert.Equal(t, "OPEN", cb.State())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())
	cb.Success()
	assert.Equal(t, "CLOSED", cb.State())
}

func TestFetchClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "no such series"}`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv, WithCircuitBreaker(1, time.Hour))
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), descriptor("/values"))
		var te *regerr.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusNotFound, te.Status)
		assert.Equal(t, "no such series", te.Message)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "CLOSED", f.breaker.State())
}

func TestCircuitBreakerHalfOpenAdmitsOneCaller(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("test", 1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.Failure()
	require.Equal(t, "OPEN", cb.State())
	now = now.Add(2 * time.Minute)

	assert.True(t, cb.Allow(), "first caller is a trial request")
	assert.False(t, cb.Allow(), "second caller waits for the trial")
	assert.False(t, cb.Allow())

	cb.Release()
	assert.True(t, cb.Allow(), "a released trial makes room for another")
	assert.False(t, cb.Allow())

	cb.Success()
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
}
