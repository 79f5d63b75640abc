// Package sink writes result tables to their download destinations: CSV
// files, SQL tables and object stores. Every failure is reported as a
// *regerr.WriteError; the table being written is never modified.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// DefaultTable is the SQL table written when the destination names none.
const DefaultTable = "regcensus_values"

// Sink persists a table and reports where it went.
type Sink interface {
	Write(ctx context.Context, t *regdata.ResultTable) (string, error)
	Close() error
}

type options struct {
	logger *slog.Logger
	s3     S3Config
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used to report completed writes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithS3Config overrides the region and endpoint used for s3:// destinations.
func WithS3Config(cfg S3Config) Option {
	return func(o *options) { o.s3 = cfg }
}

// Open returns the sink for dest. A plain path (or file://) is a CSV file;
// sqlite:// and postgres:// write a SQL table named by the "table" query
// parameter; s3:// and gs:// upload CSV objects.
func Open(ctx context.Context, dest string, opts ...Option) (Sink, error) {
	o := options{logger: slog.Default().With("component", "sink")}
	for _, opt := range opts {
		opt(&o)
	}

	scheme, rest, found := strings.Cut(dest, "://")
	if !found {
		return &FileSink{path: dest, logger: o.logger}, nil
	}

	var (
		s   Sink
		err error
	)
	switch strings.ToLower(scheme) {
	case "file":
		return &FileSink{path: rest, logger: o.logger}, nil
	case "sqlite", "sqlite3":
		s, err = openSQLite(ctx, rest)
	case "postgres", "postgresql":
		s, err = openPostgres(ctx, dest)
	case "s3":
		bucket, key, perr := objectPath(dest)
		if perr != nil {
			return nil, &regerr.WriteError{Dest: dest, Err: perr}
		}
		s, err = newS3Sink(ctx, o.s3, bucket, key)
	case "gs":
		bucket, key, err := objectPath(dest)
		if err != nil {
			return nil, &regerr.WriteError{Dest: dest, Err: err}
		}
		return newGCSSink(ctx, bucket, key)
	default:
		return nil, &regerr.WriteError{Dest: dest, Err: fmt.Errorf("unsupported destination scheme %q", scheme)}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Write opens dest, writes t and closes the sink. It returns the location
// written to.
func Write(ctx context.Context, dest string, t *regdata.ResultTable, opts ...Option) (string, error) {
	s, err := Open(ctx, dest, opts...)
	if err != nil {
		return "", asWriteError(dest, err)
	}
	loc, err := s.Write(ctx, t)
	if cerr := s.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", asWriteError(dest, err)
	}
	return loc, nil
}

func asWriteError(dest string, err error) error {
	var we *regerr.WriteError
	if errors.As(err, &we) {
		return err
	}
	return &regerr.WriteError{Dest: dest, Err: err}
}

// objectPath splits scheme://bucket/key.
func objectPath(dest string) (bucket, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", err
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("want %s://bucket/key", u.Scheme)
	}
	return u.Host, key, nil
}
