package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/QuantGov/regcensus-api-go/pkg/canonicalize"
	"github.com/QuantGov/regcensus-api-go/pkg/observability"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

// Fetcher wraps a transport.Fetcher and serves metadata responses from a
// Store. Cache failures are logged and fall through to the wrapped fetcher.
type Fetcher struct {
	next   transport.Fetcher
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewFetcher caches next's metadata responses in store for ttl.
func NewFetcher(next transport.Fetcher, store Store, ttl time.Duration) *Fetcher {
	return &Fetcher{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}
}

// Cacheable reports whether responses to d may be cached: everything except
// values and document-values.
func Cacheable(d request.Descriptor) bool {
	return d.Path != request.PathValues && d.Path != request.PathDocumentValues
}

func (f *Fetcher) Fetch(ctx context.Context, d request.Descriptor) ([]byte, error) {
	if !Cacheable(d) {
		return f.next.Fetch(ctx, d)
	}
	key, err := canonicalize.RequestKey(d.Method, d.Path, d.Params)
	if err != nil {
		f.logger.WarnContext(ctx, "cache key failed", "path", d.Path, "error", err)
		return f.next.Fetch(ctx, d)
	}

	body, ok, err := f.store.Get(ctx, key)
	switch {
	case err != nil:
		f.logger.WarnContext(ctx, "cache read failed", "path", d.Path, "error", err)
	case ok:
		observability.AddSpanEvent(ctx, "cache", observability.AttrCacheHit.Bool(true), observability.AttrPath.String(d.Path))
		f.logger.DebugContext(ctx, "cache hit", "path", d.Path)
		return body, nil
	}

	body, err = f.next.Fetch(ctx, d)
	if err != nil {
		return nil, err
	}
	// Error objects delivered with a 2xx status are not worth keeping.
	if _, isErr := transport.ErrorPayload(body); isErr {
		return body, nil
	}
	if err := f.store.Set(ctx, key, body, f.ttl); err != nil {
		f.logger.WarnContext(ctx, "cache write failed", "path", d.Path, "error", err)
	}
	return body, nil
}
