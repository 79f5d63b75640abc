//go:build !gcp

package sink

import (
	"context"
	"fmt"

	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

func newGCSSink(ctx context.Context, bucket, key string) (Sink, error) {
	return nil, &regerr.WriteError{
		Dest: "gs://" + bucket + "/" + key,
		Err:  fmt.Errorf("GCS output is not enabled in this build (use -tags gcp)"),
	}
}
