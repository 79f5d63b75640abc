package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client semantic convention attributes.
var (
	AttrOperation     = attribute.Key("regcensus.operation")
	AttrPartition     = attribute.Key("regcensus.partition")
	AttrPartitions    = attribute.Key("regcensus.partitions")
	AttrPath          = attribute.Key("regcensus.path")
	AttrPage          = attribute.Key("regcensus.page")
	AttrJurisdictions = attribute.Key("regcensus.jurisdictions")
	AttrSeries        = attribute.Key("regcensus.series")
	AttrPeriods       = attribute.Key("regcensus.periods")
	AttrRowOutcome    = attribute.Key("regcensus.row.outcome")
	AttrCacheHit      = attribute.Key("regcensus.cache.hit")
	AttrSink          = attribute.Key("regcensus.sink")
)

// QueryOperation creates attributes for a values resolution.
func QueryOperation(operation string, jurisdictions, series, periods, partitions int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrOperation.String(operation),
		AttrJurisdictions.Int(jurisdictions),
		AttrSeries.Int(series),
		AttrPeriods.Int(periods),
		AttrPartitions.Int(partitions),
	}
}

// FetchOperation creates attributes for one remote request.
func FetchOperation(path string, partition, page int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPath.String(path),
		AttrPartition.Int(partition),
		AttrPage.Int(page),
	}
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records err on the current span.
func SetSpanStatus(ctx context.Context, err error) {
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
