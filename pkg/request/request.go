// Package request turns a normalized query into the ordered list of HTTP
// request descriptors that resolve it.
package request

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// Resource paths on the remote service.
const (
	PathValues         = "/values"
	PathDocumentValues = "/document-values"
)

// Wire parameter names owned by the remote service.
const (
	ParamSeries       = "series"
	ParamJurisdiction = "jurisdiction"
	ParamAgency       = "agency"
	ParamCluster      = "cluster"
	ParamLabel        = "label"
	ParamLabelLevel   = "labelLevel"
	ParamYear         = "year"
	ParamDate         = "date"
	ParamFilteredOnly = "filteredOnly"
	ParamDocumentType = "documenttype"
	ParamVersion      = "version"
	ParamPage         = "page"
)

// Descriptor is one request against the remote service. Partition is the
// zero-based submission index within its logical query.
type Descriptor struct {
	Method    string     `json:"method"`
	Path      string     `json:"path"`
	Params    url.Values `json:"params"`
	Partition int        `json:"partition"`
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Params = make(url.Values, len(d.Params))
	for k, v := range d.Params {
		c.Params[k] = append([]string(nil), v...)
	}
	return c
}

// Limits bound the size of a single request. Zero means unlimited.
type Limits struct {
	// MaxCells bounds jurisdictions x series x periods x agencies x clusters x
	// industries.
	MaxCells         int `json:"max_cells" yaml:"max_cells"`
	MaxPeriods       int `json:"max_periods" yaml:"max_periods"`
	MaxJurisdictions int `json:"max_jurisdictions" yaml:"max_jurisdictions"`
	MaxSeries        int `json:"max_series" yaml:"max_series"`
	// MaxDates caps the dates of one document-level request, on top of
	// MaxPeriods.
	MaxDates int `json:"max_dates" yaml:"max_dates"`
}

// DefaultMaxDates keeps a document-level date list to roughly one quarter
// per request.
const DefaultMaxDates = 92

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDates: DefaultMaxDates}
}

func (l Limits) periodCap(summary bool) int {
	switch {
	case summary || l.MaxDates <= 0:
		return l.MaxPeriods
	case l.MaxPeriods <= 0:
		return l.MaxDates
	default:
		return min(l.MaxPeriods, l.MaxDates)
	}
}

// SeriesLookup exposes the subgroup support flags of known series.
type SeriesLookup interface {
	Series(id int) (regdata.Series, bool)
}

// Build validates subgroup support and partitions q into the fewest
// descriptors that respect limits. Partitions are emitted period-major:
// period chunk, then jurisdiction chunk, then series chunk. Agency, cluster
// and industry sets are never split.
func Build(q regdata.Query, limits Limits, lookup SeriesLookup) ([]Descriptor, error) {
	if len(q.Jurisdictions) == 0 {
		return nil, regerr.Validation(regerr.KindMissingParameter, ParamJurisdiction, "at least one jurisdiction is required")
	}
	if len(q.Series) == 0 {
		return nil, regerr.Validation(regerr.KindMissingParameter, ParamSeries, "at least one series is required")
	}
	if len(q.Periods) == 0 {
		return nil, regerr.Validation(regerr.KindMissingParameter, ParamDate, "at least one date is required")
	}
	if err := CheckSupport(q, lookup); err != nil {
		return nil, err
	}

	path := PathValues
	if q.Operation() == regdata.OpDocumentValues {
		path = PathDocumentValues
	}
	shared := sharedParams(q)

	p, j, s := chunkSizes(q, limits)
	var out []Descriptor
	for _, periods := range chunk(q.Periods, p) {
		for _, jurisdictions := range chunk(q.Jurisdictions, j) {
			for _, series := range chunk(q.Series, s) {
				params := make(url.Values, len(shared)+3)
				for k, v := range shared {
					params[k] = append([]string(nil), v...)
				}
				params.Set(ParamSeries, joinInts(series))
				params.Set(ParamJurisdiction, joinInts(jurisdictions))
				if q.Flags.Summary {
					params.Set(ParamYear, joinPeriods(periods))
				} else {
					params.Set(ParamDate, joinPeriods(periods))
				}
				out = append(out, Descriptor{
					Method:    http.MethodGet,
					Path:      path,
					Params:    params,
					Partition: len(out),
				})
			}
		}
	}
	return out, nil
}

// CheckSupport rejects agency, cluster or industry filters on series that
// do not publish those subgroups. Series unknown to lookup are not checked.
func CheckSupport(q regdata.Query, lookup SeriesLookup) error {
	return CheckSeriesSupport(q.Series, len(q.Agencies) > 0, len(q.Clusters) > 0, len(q.Industries) > 0, lookup)
}

// CheckSeriesSupport is CheckSupport for callers that know which filters
// are set before the filter values are resolved.
func CheckSeriesSupport(series []int, agency, cluster, industry bool, lookup SeriesLookup) error {
	if lookup == nil || (!agency && !cluster && !industry) {
		return nil
	}
	for _, id := range series {
		s, ok := lookup.Series(id)
		if !ok {
			continue
		}
		if agency && !s.ByAgency {
			return regerr.Validation(regerr.KindUnsupportedCombination, ParamAgency, "series %d has no agency breakdown", id)
		}
		if cluster && !s.ByAgency {
			return regerr.Validation(regerr.KindUnsupportedCombination, ParamCluster, "series %d has no agency breakdown to cluster", id)
		}
		if industry && !s.ByIndustry {
			return regerr.Validation(regerr.KindUnsupportedCombination, "industry", "series %d has no industry breakdown", id)
		}
	}
	return nil
}

func sharedParams(q regdata.Query) url.Values {
	v := url.Values{}
	if len(q.Agencies) > 0 {
		v.Set(ParamAgency, joinInts(q.Agencies))
	}
	if len(q.Clusters) > 0 {
		v.Set(ParamCluster, joinInts(q.Clusters))
	}
	if len(q.Industries) > 0 {
		v.Set(ParamLabel, joinInts(q.Industries))
	}
	v.Set(ParamLabelLevel, strconv.Itoa(q.Flags.IndustryLevel))
	if !q.Flags.Filtered {
		v.Set(ParamFilteredOnly, "false")
	}
	v.Set(ParamDocumentType, strconv.Itoa(q.Flags.DocumentType))
	if q.Flags.Version != nil {
		v.Set(ParamVersion, strconv.Itoa(*q.Flags.Version))
	}
	if q.Flags.Page > 0 {
		v.Set(ParamPage, strconv.Itoa(q.Flags.Page))
	}
	return v
}

// chunkSizes picks per-request chunk lengths for periods, jurisdictions and
// series. Per-axis caps are hard limits and an axis is only split when a
// limit requires it. Under a cell budget the combination with the fewest
// requests wins; ties go to the larger period chunk, then the larger
// jurisdiction chunk.
func chunkSizes(q regdata.Query, l Limits) (p, j, s int) {
	np, nj, ns := len(q.Periods), len(q.Jurisdictions), len(q.Series)
	capP := capAt(np, l.periodCap(q.Flags.Summary))
	capJ := capAt(nj, l.MaxJurisdictions)
	capS := capAt(ns, l.MaxSeries)
	if l.MaxCells <= 0 || capP*capJ*capS <= cellBudget(q, l) {
		return capP, capJ, capS
	}

	budget := cellBudget(q, l)
	best := 0
	for si := capS; si >= 1; si-- {
		for ji := capJ; ji >= 1; ji-- {
			if ji*si > budget {
				continue
			}
			pi := min(capP, budget/(ji*si))
			n := ceilDiv(np, pi) * ceilDiv(nj, ji) * ceilDiv(ns, si)
			if best == 0 || n < best || (n == best && (pi > p || (pi == p && ji > j))) {
				best, p, j, s = n, pi, ji, si
			}
		}
	}
	return p, j, s
}

// cellBudget is the number of jurisdiction x series x period cells one
// request may carry once the unsplittable agency, cluster and industry sets
// are accounted for. It is at least 1.
func cellBudget(q regdata.Query, l Limits) int {
	fixed := max(1, len(q.Agencies)) * max(1, len(q.Clusters)) * max(1, len(q.Industries))
	return max(1, l.MaxCells/fixed)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

func chunk[T any](in []T, size int) [][]T {
	if size <= 0 {
		size = len(in)
	}
	var out [][]T
	for start := 0; start < len(in); start += size {
		end := min(start+size, len(in))
		out = append(out, in[start:end])
	}
	return out
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func joinPeriods(ps []regdata.Period) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
