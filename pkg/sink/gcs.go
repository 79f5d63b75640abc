//go:build gcp

package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// GCSSink uploads a table as a CSV object to Google Cloud Storage.
type GCSSink struct {
	client *storage.Client
	bucket string
	key    string
}

func newGCSSink(ctx context.Context, bucket, key string) (Sink, error) {
	// Uses application default credentials.
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &regerr.WriteError{Dest: "gs://" + bucket + "/" + key, Err: fmt.Errorf("create GCS client: %w", err)}
	}
	return &GCSSink{client: client, bucket: bucket, key: key}, nil
}

func (s *GCSSink) location() string { return "gs://" + s.bucket + "/" + s.key }

func (s *GCSSink) Write(ctx context.Context, t *regdata.ResultTable) (string, error) {
	data, err := csvBytes(t)
	if err != nil {
		return "", &regerr.WriteError{Dest: s.location(), Err: err}
	}

	w := s.client.Bucket(s.bucket).Object(s.key).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", &regerr.WriteError{Dest: s.location(), Err: fmt.Errorf("gcs write failed: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &regerr.WriteError{Dest: s.location(), Err: fmt.Errorf("gcs close failed: %w", err)}
	}
	return s.location(), nil
}

// Close closes the GCS client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
