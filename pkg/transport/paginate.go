package transport

import (
	"context"
	"fmt"
	"strconv"

	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
)

// DefaultPageSize is the service's page length. A page of exactly this many
// records may be followed by more.
const DefaultPageSize = 5000

// MaxPages bounds automatic pagination of one descriptor.
const MaxPages = 2000

// RecordCounter returns the number of records in a response body.
type RecordCounter func(body []byte) (int, error)

// Paginate fetches d and, while the last page holds exactly pageSize
// records, the following pages (page=2, 3, ...). Pages are returned in
// order. A descriptor that already names a page, or pageSize <= 0, is
// fetched once.
func Paginate(ctx context.Context, f Fetcher, d request.Descriptor, pageSize int, count RecordCounter) ([][]byte, error) {
	first, err := f.Fetch(ctx, d)
	if err != nil {
		return nil, err
	}
	pages := [][]byte{first}
	if pageSize <= 0 || d.Params.Get(request.ParamPage) != "" {
		return pages, nil
	}

	body := first
	for page := 2; ; page++ {
		n, err := count(body)
		if err != nil {
			return nil, fmt.Errorf("count page %d: %w", page-1, err)
		}
		if n != pageSize {
			return pages, nil
		}
		if page > MaxPages {
			return nil, &regerr.TransportError{Message: fmt.Sprintf("pagination exceeded %d pages", MaxPages)}
		}
		next := d.Clone()
		next.Params.Set(request.ParamPage, strconv.Itoa(page))
		body, err = f.Fetch(ctx, next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, body)
	}
}
