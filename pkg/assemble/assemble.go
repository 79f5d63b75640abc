// Package assemble decodes service payloads and concatenates them into one
// regdata.ResultTable. Partition order and the service's native row order
// are preserved; nothing is sorted. Rows whose value or identifiers cannot
// be parsed are dropped and counted rather than failing the call.
package assemble

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// Field aliases observed in service payloads, after prefix cleaning.
var (
	jurisdictionKeys = []string{"jurisdiction_id", "jurisdictionID", "a_jurisdiction_id"}
	seriesKeys       = []string{"series_id", "seriesID"}
	valueKeys        = []string{"series_value", "seriesValue", "value"}
	yearKeys         = []string{"year", "series_year", "seriesYear"}
	dateKeys         = []string{"date", "document_date", "series_date", "seriesDate"}
	agencyKeys       = []string{"agency_id", "agencyID"}
	industryKeys     = []string{"label_id", "industry_id", "labelID", "industryID"}
	documentKeys     = []string{"document_id", "documentID"}
	versionKeys      = []string{"version_id", "versionID", "version"}
)

var coreKeys = func() map[string]bool {
	m := map[string]bool{}
	for _, group := range [][]string{jurisdictionKeys, seriesKeys, valueKeys, yearKeys, dateKeys, agencyKeys, industryKeys, documentKeys, versionKeys} {
		for _, k := range group {
			m[k] = true
		}
	}
	return m
}()

// Assembler accumulates pages into a table.
type Assembler struct {
	table *regdata.ResultTable
}

// New returns an assembler producing a table at granularity g.
func New(g regdata.Granularity) *Assembler {
	return &Assembler{table: regdata.NewTable(g)}
}

// Add decodes one page and appends its rows in native order.
func (a *Assembler) Add(body []byte) error {
	recs, err := Decode(body)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		a.AddRecord(rec)
	}
	return nil
}

// AddRecord types one record and appends it, or counts it as dropped.
func (a *Assembler) AddRecord(rec Record) {
	row, ok := toRow(rec, a.table.Granularity)
	if !ok {
		a.table.Dropped++
		return
	}
	a.table.Append(row)
}

// Table returns the assembled table. It has the full column set even when
// no rows were added.
func (a *Assembler) Table() *regdata.ResultTable { return a.table }

// Assemble builds a table from pages given in partition order.
func Assemble(g regdata.Granularity, pages [][]byte) (*regdata.ResultTable, error) {
	a := New(g)
	for i, p := range pages {
		if err := a.Add(p); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
	}
	return a.Table(), nil
}

func toRow(rec Record, g regdata.Granularity) (regdata.ResultRow, bool) {
	var row regdata.ResultRow
	var ok bool

	if row.JurisdictionID, ok = requiredInt(rec, jurisdictionKeys); !ok {
		return row, false
	}
	if row.SeriesID, ok = requiredInt(rec, seriesKeys); !ok {
		return row, false
	}
	if row.Value, ok = requiredFloat(rec, valueKeys); !ok {
		return row, false
	}
	if row.Period, ok = period(rec, g); !ok {
		return row, false
	}
	if row.AgencyID, ok = optionalInt(rec, agencyKeys); !ok {
		return row, false
	}
	if row.IndustryID, ok = optionalInt(rec, industryKeys); !ok {
		return row, false
	}
	// A non-numeric version is kept as the version_name column.
	row.Version, _ = optionalInt(rec, versionKeys)
	if v, present := lookup(rec, documentKeys); present {
		id, ok := toInt64(v)
		if !ok {
			return row, false
		}
		row.DocumentID = &id
	}

	if v, ok := rec["version"]; ok && v != nil && row.Version == nil {
		row.Extra = map[string]string{"version_name": toString(v)}
	}
	for k, v := range rec {
		if v == nil || coreKeys[k] {
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]string)
		}
		row.Extra[k] = toString(v)
	}
	return row, true
}

func period(rec Record, g regdata.Granularity) (regdata.Period, bool) {
	if g == regdata.GranularityDay {
		v, ok := lookup(rec, dateKeys)
		if !ok {
			return regdata.Period{}, false
		}
		return parseDate(toString(v))
	}

	if v, ok := lookup(rec, yearKeys); ok {
		if y, ok := toInt64(v); ok {
			return regdata.Year(int(y)), true
		}
		if p, ok := parseDate(toString(v)); ok {
			return p.Truncate(regdata.GranularityYear), true
		}
		return regdata.Period{}, false
	}
	if v, ok := lookup(rec, dateKeys); ok {
		if p, ok := parseDate(toString(v)); ok {
			return p.Truncate(regdata.GranularityYear), true
		}
	}
	return regdata.Period{}, false
}

// parseDate accepts YYYY-MM-DD optionally followed by a time part.
func parseDate(s string) (regdata.Period, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return regdata.Period{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return regdata.Period{}, false
	}
	return regdata.FromTime(t), true
}

func lookup(rec Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requiredInt(rec Record, keys []string) (int, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return 0, false
	}
	n, ok := toInt64(v)
	return int(n), ok
}

func optionalInt(rec Record, keys []string) (*int, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return nil, true
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, true
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, false
	}
	i := int(n)
	return &i, true
}

func requiredFloat(rec Record, keys []string) (float64, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return 0, false
	}
	var f float64
	var err error
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case float64:
		f = x
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return toInt64(json.Number(strings.TrimSpace(x)))
		}
		return n, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
