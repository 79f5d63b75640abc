package regcensus

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/QuantGov/regcensus-api-go/pkg/assemble"
	"github.com/QuantGov/regcensus-api-go/pkg/normalize"
	"github.com/QuantGov/regcensus-api-go/pkg/observability"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/request"
	"github.com/QuantGov/regcensus-api-go/pkg/sink"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

// Series ids used by the document and reading-time helpers.
const (
	SeriesRestrictions = 1
	SeriesWords        = 2
)

// ValuesRequest is one values query. Download, when set, is a sink
// destination the result is also written to.
type ValuesRequest struct {
	normalize.Args
	Download string
}

// GetValues resolves req into a table. Checks that need no metadata run
// before any request is sent. When req.Download is set and the write fails,
// the table is returned together with a *regerr.WriteError.
func (c *Client) GetValues(ctx context.Context, req ValuesRequest) (t *regdata.ResultTable, err error) {
	ctx, finish := c.obs.TrackOperation(ctx, "regcensus.get_values")
	defer func() { finish(err) }()

	if err := normalize.Check(req.Args); err != nil {
		return nil, err
	}
	ix, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}
	if err := request.CheckSeriesSupport(req.Series.Slice(),
		!req.Agency.IsZero(), !req.Cluster.IsZero(), !req.Industry.IsZero(), ix); err != nil {
		return nil, err
	}
	if !req.Industry.IsZero() {
		level := req.IndustryLevel
		if level <= 0 {
			level = regdata.DefaultIndustryLevel
		}
		if ix, err = c.indexWithIndustries(ctx, level); err != nil {
			return nil, err
		}
	}

	q, err := normalize.Normalize(req.Args, ix)
	if err != nil {
		return nil, err
	}
	if len(q.Industries) > 0 {
		if !q.Flags.Filtered {
			c.logger.WarnContext(ctx, "returning unfiltered industry results; not recommended")
		}
		if !q.Flags.Summary {
			c.logger.WarnContext(ctx, "returning document-level industry results; this query may take several minutes")
		}
	}

	descriptors, err := request.Build(q, c.limits, ix)
	if err != nil {
		return nil, err
	}
	observability.AddSpanEvent(ctx, "partitioned", observability.QueryOperation(
		string(q.Operation()), len(q.Jurisdictions), len(q.Series), len(q.Periods), len(descriptors))...)

	pages, err := c.fetchAll(ctx, descriptors)
	if err != nil {
		return nil, err
	}
	t, err = assemble.Assemble(q.Granularity(), pages)
	if err != nil {
		return nil, err
	}
	if t.Dropped > 0 {
		c.logger.WarnContext(ctx, "dropped malformed rows", "dropped", t.Dropped)
	}
	c.obs.RecordRows(ctx, t.Len(), t.Dropped, t.Duplicates, observability.AttrOperation.String(string(q.Operation())))

	if req.Download != "" {
		if err := c.download(ctx, req.Download, t); err != nil {
			return t, err
		}
	}
	return t, nil
}

// GetDocumentValues resolves req at document level. Dates must be full dates.
func (c *Client) GetDocumentValues(ctx context.Context, req ValuesRequest) (*regdata.ResultTable, error) {
	req.DocumentLevel = true
	return c.GetValues(ctx, req)
}

// GetDocuments returns the per-document restriction counts of one
// jurisdiction for the given dates.
func (c *Client) GetDocuments(ctx context.Context, jurisdictionID int, date normalize.Values[regdata.Period], documentType int) (*regdata.ResultTable, error) {
	return c.GetValues(ctx, ValuesRequest{Args: normalize.Args{
		Jurisdiction:  normalize.One(jurisdictionID),
		Series:        normalize.One(SeriesRestrictions),
		Date:          date,
		DocumentLevel: true,
		DocumentType:  documentType,
	}})
}

// fetchAll resolves every descriptor, following pagination, and returns the
// pages in partition order.
func (c *Client) fetchAll(ctx context.Context, descriptors []request.Descriptor) ([][]byte, error) {
	results := make([][][]byte, len(descriptors))
	if c.concurrency <= 1 || len(descriptors) == 1 {
		for i, d := range descriptors {
			pages, err := transport.Paginate(ctx, c.fetcher, d, c.pageSize, assemble.Count)
			if err != nil {
				return nil, fmt.Errorf("partition %d: %w", d.Partition, err)
			}
			results[i] = pages
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, d := range descriptors {
			g.Go(func() error {
				pages, err := transport.Paginate(gctx, c.fetcher, d, c.pageSize, assemble.Count)
				if err != nil {
					return fmt.Errorf("partition %d: %w", d.Partition, err)
				}
				results[i] = pages
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var all [][]byte
	for _, pages := range results {
		all = append(all, pages...)
	}
	return all, nil
}

func (c *Client) download(ctx context.Context, dest string, t *regdata.ResultTable) (err error) {
	ctx, finish := c.obs.TrackOperation(ctx, "regcensus.download")
	defer func() { finish(err) }()

	loc, err := sink.Write(ctx, dest, t, c.sinkOpts...)
	if err != nil {
		c.logger.ErrorContext(ctx, "download failed", "dest", dest, "error", err)
		return err
	}
	c.logger.InfoContext(ctx, "table downloaded", "location", loc, "rows", t.Len())
	return nil
}
