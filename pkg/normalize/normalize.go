// Package normalize validates loosely-shaped query arguments and expands them
// into a regdata.Query: single values are promoted to sequences, date ranges
// are enumerated, countries are expanded to their sub-jurisdictions and
// industry codes are resolved to service ids. It performs no I/O; all
// metadata comes from the injected Lookup.
package normalize

import (
	"strconv"
	"strings"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// Lookup is the metadata the normalizer consults. *metadata.Index implements it.
type Lookup interface {
	Jurisdiction(id int) (regdata.Jurisdiction, bool)
	Expand(id int) ([]int, bool)
	ResolveJurisdiction(name string) (int, bool)
	HasIndustries(level int) bool
	Industry(code string, level int) (int, bool)
}

// Args are the caller-facing query arguments. The zero value of every flag
// selects the default behaviour: dates form an inclusive range, industry
// results are filtered, data is summary level, no country expansion.
type Args struct {
	Jurisdiction Values[int]
	// JurisdictionName is resolved to ids and merged after Jurisdiction.
	JurisdictionName Values[string]
	Series           Values[int]
	Date             Values[regdata.Period]
	Agency           Values[int]
	// Cluster holds agency cluster ids as listed by the clusters endpoint.
	Cluster Values[int]
	// Industry holds classification codes such as NAICS "111".
	Industry Values[string]

	// DatesAsList treats Date as discrete periods instead of [start, end].
	DatesAsList bool
	// Unfiltered includes industry results the service flags as unreliable.
	Unfiltered bool
	// DocumentLevel requests per-document values; dates must be full dates.
	DocumentLevel bool
	// Country expands each jurisdiction to itself plus its sub-jurisdictions.
	Country bool

	IndustryLevel int
	DocumentType  int
	Version       *int
	// Page fetches one page of each request instead of all of them.
	Page int
}

// Check runs every validation that needs no metadata: required fields,
// flag ranges, date granularity and range shape. Normalize repeats it, so
// callers use Check to fail fast before loading a Lookup.
func Check(args Args) error {
	_, _, err := check(args)
	return err
}

// Normalize validates args and returns the expanded query. Every failure is a
// *regerr.ValidationError naming the parameter and constraint.
func Normalize(args Args, lookup Lookup) (regdata.Query, error) {
	flags, periods, err := check(args)
	if err != nil {
		return regdata.Query{}, err
	}

	jurisdictions, err := Jurisdictions(args.Jurisdiction.Slice(), args.JurisdictionName.Slice(), args.Country, lookup)
	if err != nil {
		return regdata.Query{}, err
	}
	industries, err := Industries(args.Industry.Slice(), flags.IndustryLevel, lookup)
	if err != nil {
		return regdata.Query{}, err
	}

	return regdata.Query{
		Jurisdictions: jurisdictions,
		Series:        dedupe(args.Series.Slice()),
		Periods:       periods,
		Agencies:      dedupe(args.Agency.Slice()),
		Clusters:      dedupe(args.Cluster.Slice()),
		Industries:    industries,
		Flags:         flags,
	}, nil
}

func check(args Args) (regdata.Flags, []regdata.Period, error) {
	flags := regdata.Flags{
		Summary:       !args.DocumentLevel,
		Filtered:      !args.Unfiltered,
		IndustryLevel: args.IndustryLevel,
		DocumentType:  args.DocumentType,
		Version:       args.Version,
		Page:          args.Page,
	}
	if flags.IndustryLevel == 0 {
		flags.IndustryLevel = regdata.DefaultIndustryLevel
	}
	if flags.DocumentType == 0 {
		flags.DocumentType = regdata.DefaultDocumentType
	}
	if flags.IndustryLevel < 0 {
		return flags, nil, regerr.Validation(regerr.KindInvalidIndustry, "industryLevel", "must be positive, got %d", flags.IndustryLevel)
	}
	if flags.DocumentType < 0 {
		return flags, nil, regerr.Validation(regerr.KindInvalidParameter, "documentType", "must be positive, got %d", flags.DocumentType)
	}
	if flags.Page < 0 {
		return flags, nil, regerr.Validation(regerr.KindInvalidParameter, "page", "must be positive, got %d", flags.Page)
	}

	if args.Jurisdiction.IsZero() && args.JurisdictionName.IsZero() {
		return flags, nil, regerr.Validation(regerr.KindMissingParameter, "jurisdiction", "at least one jurisdiction is required")
	}
	if args.Series.IsZero() {
		return flags, nil, regerr.Validation(regerr.KindMissingParameter, "series", "at least one series is required")
	}
	if args.Date.IsZero() {
		return flags, nil, regerr.Validation(regerr.KindMissingParameter, "date", "at least one date is required")
	}

	g := regdata.GranularityYear
	if !flags.Summary {
		g = regdata.GranularityDay
	}
	periods, err := Periods(args.Date.Slice(), g, !args.DatesAsList)
	if err != nil {
		return flags, nil, err
	}
	return flags, periods, nil
}

// Jurisdictions resolves names, validates ids against lookup and, when
// country is set, replaces each id with the id followed by its children.
// The result has no duplicates and keeps first-seen order.
func Jurisdictions(ids []int, names []string, country bool, lookup Lookup) ([]int, error) {
	all := append([]int(nil), ids...)
	for _, name := range names {
		id, ok := lookup.ResolveJurisdiction(name)
		if !ok {
			return nil, regerr.Validation(regerr.KindInvalidJurisdiction, "jurisdiction", "unknown jurisdiction name %q", name)
		}
		all = append(all, id)
	}

	out := make([]int, 0, len(all))
	for _, id := range all {
		if !country {
			if _, ok := lookup.Jurisdiction(id); !ok {
				return nil, regerr.Validation(regerr.KindInvalidJurisdiction, "jurisdiction", "unknown jurisdiction id %d", id)
			}
			out = append(out, id)
			continue
		}
		expanded, ok := lookup.Expand(id)
		if !ok {
			return nil, regerr.Validation(regerr.KindInvalidJurisdiction, "jurisdiction", "unknown country id %d", id)
		}
		out = append(out, expanded...)
	}
	return dedupe(out), nil
}

// Periods converts raw dates to periods at granularity g. In range mode two
// elements are enumerated inclusively and one element is a singleton; in
// list mode the dates are kept in order with duplicates removed.
//
// Summary data (GranularityYear) accepts full dates and reduces them to the
// year. Document data (GranularityDay) rejects bare years.
func Periods(dates []regdata.Period, g regdata.Granularity, isRange bool) ([]regdata.Period, error) {
	coerced := make([]regdata.Period, len(dates))
	for i, d := range dates {
		if g == regdata.GranularityDay && !d.IsFullDate() {
			return nil, regerr.Validation(regerr.KindDateGranularityMismatch, "date", "document-level data requires YYYY-MM-DD, got %s", d)
		}
		coerced[i] = d.Truncate(g)
	}

	if !isRange {
		return dedupe(coerced), nil
	}

	switch len(coerced) {
	case 1:
		return coerced, nil
	case 2:
		start, end := coerced[0], coerced[1]
		if start.Compare(end) > 0 {
			return nil, regerr.Validation(regerr.KindInvalidDateRange, "date", "start %s is after end %s", start, end)
		}
		var out []regdata.Period
		for p := start; p.Compare(end) <= 0; p = p.Next(g) {
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, regerr.Validation(regerr.KindInvalidDateRange, "date", "a range takes [start, end], got %d dates", len(coerced))
	}
}

// Industries resolves industry codes to service ids. When lookup has no code
// table for level, numeric codes are sent as given.
func Industries(codes []string, level int, lookup Lookup) ([]int, error) {
	out := make([]int, 0, len(codes))
	useTable := lookup.HasIndustries(level)
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if useTable {
			id, ok := lookup.Industry(code, level)
			if !ok {
				return nil, regerr.Validation(regerr.KindInvalidIndustry, "industry", "unknown code %q at level %d", code, level)
			}
			out = append(out, id)
			continue
		}
		id, err := strconv.Atoi(code)
		if err != nil {
			return nil, regerr.Validation(regerr.KindInvalidIndustry, "industry", "code %q is not numeric", code)
		}
		out = append(out, id)
	}
	return dedupe(out), nil
}
