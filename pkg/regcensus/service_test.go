package regcensus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/QuantGov/regcensus-api-go/pkg/request"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

// fakeService mimics the regulatory-data service: payloads are JSON arrays
// encoded a second time as a JSON string, and values rows are generated from
// the request parameters.
type fakeService struct {
	t *testing.T

	mu       sync.Mutex
	requests []*url.URL

	metadata map[string]any
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fs := &fakeService{
		t: t,
		metadata: map[string]any{
			PathJurisdictions: []map[string]any{
				{"jurisdiction_id": 38, "jurisdiction_name": "United States"},
				{"jurisdiction_id": 45, "jurisdiction_name": "Virginia", "jurisdiction_parent_id": 38},
				{"jurisdiction_id": 47, "jurisdiction_name": "Washington", "jurisdiction_parent_id": 38},
			},
			PathSeries: []map[string]any{
				{"series_id": 1, "series_name": "Restrictions", "agency_available": 1, "industry_available": 0},
				{"series_id": 2, "series_name": "Words", "agency_available": 1, "industry_available": 0},
				{"series_id": 92, "series_name": "Restrictions by Industry", "agency_available": 1, "industry_available": 1},
				{"series_id": 93, "series_name": "Restrictions by Industry (all agencies)", "agency_available": 0, "industry_available": 1},
			},
			PathLabels: []map[string]any{
				{"label_id": 1011, "label_code": "111", "label_name": "Crop Production", "label_level": 3},
				{"label_id": 1033, "label_code": "33", "label_name": "Manufacturing", "label_level": 3},
				{"label_id": 1999, "label_code": "", "label_name": "Unclassified", "label_level": 3},
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.requests = append(fs.requests, r.URL)
	fs.mu.Unlock()

	q := r.URL.Query()
	switch r.URL.Path {
	case request.PathValues:
		fs.respond(w, valueRows(q, "year"))
	case request.PathDocumentValues:
		fs.respond(w, valueRows(q, "date"))
	default:
		fs.mu.Lock()
		body, ok := fs.metadata[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "no such endpoint"}`))
			return
		}
		fs.respond(w, body)
	}
}

// valueRows generates one row per requested period, jurisdiction, series,
// agency and label combination, in that nesting order.
func valueRows(q url.Values, periodParam string) []map[string]any {
	var rows []map[string]any
	for _, period := range split(q.Get(periodParam)) {
		for _, j := range split(q.Get(request.ParamJurisdiction)) {
			for _, s := range split(q.Get(request.ParamSeries)) {
				for _, a := range splitOrBlank(q.Get(request.ParamAgency)) {
					for _, l := range splitOrBlank(q.Get(request.ParamLabel)) {
						row := map[string]any{
							"jurisdiction_id": atoi(j),
							"series_id":       atoi(s),
							"series_value":    float64(len(rows) + 1),
						}
						if periodParam == "year" {
							row["year"] = atoi(period)
						} else {
							row["date"] = period
							row["document_id"] = 5000 + len(rows)
						}
						if a != "" {
							row["agency_id"] = atoi(a)
						}
						if l != "" {
							row["label_id"] = atoi(l)
						}
						rows = append(rows, row)
					}
				}
			}
		}
	}
	return rows
}

func (fs *fakeService) respond(w http.ResponseWriter, records any) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(encode(records))
}

// encode renders records the way the service does: a JSON array encoded a
// second time as a JSON string.
func encode(records any) []byte {
	inner, err := json.Marshal(records)
	if err != nil {
		panic(err)
	}
	outer, _ := json.Marshal(string(inner))
	return outer
}

// valuesFetcher serves values requests in process.
func valuesFetcher() transport.FetcherFunc {
	return func(ctx context.Context, d request.Descriptor) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		period := "year"
		if d.Path == request.PathDocumentValues {
			period = "date"
		}
		return encode(valueRows(d.Params, period)), nil
	}
}

// set replaces the records served at path.
func (fs *fakeService) set(path string, records any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.metadata[path] = records
}

// paths returns the request paths seen so far.
func (fs *fakeService) paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, len(fs.requests))
	for i, u := range fs.requests {
		out[i] = u.Path
	}
	return out
}

// last returns the most recent request to path.
func (fs *fakeService) last(path string) *url.URL {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i := len(fs.requests) - 1; i >= 0; i-- {
		if fs.requests[i].Path == path {
			return fs.requests[i]
		}
	}
	fs.t.Fatalf("no request to %s", path)
	return nil
}

func (fs *fakeService) count(path string) int {
	n := 0
	for _, p := range fs.paths() {
		if p == path {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithTransportOptions(transport.WithRateLimit(0, 0))}
	c, err := New(srv.URL, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func splitOrBlank(s string) []string {
	if s == "" {
		return []string{""}
	}
	return split(s)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("fake service: %q is not an integer", s))
	}
	return n
}
