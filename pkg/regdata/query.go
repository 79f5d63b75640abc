package regdata

// Operation selects the remote resource a query is resolved against.
type Operation string

const (
	OpValues         Operation = "values"
	OpDocumentValues Operation = "document-values"
)

// DefaultIndustryLevel is the NAICS digit level used when none is requested.
const DefaultIndustryLevel = 3

// DefaultDocumentType is the document type used when none is requested
// (1 = regulations).
const DefaultDocumentType = 1

// Flags are mode switches carried unchanged by every request of one query.
type Flags struct {
	Summary       bool
	Filtered      bool
	IndustryLevel int
	DocumentType  int
	Version       *int
	// Page requests one page of every partition and disables automatic
	// pagination. Zero fetches all pages.
	Page int
}

// Query is the fully expanded request unit. Jurisdictions and Series are
// non-empty once a Query leaves the normalizer.
type Query struct {
	Jurisdictions []int
	Series        []int
	Periods       []Period
	Agencies      []int
	Clusters      []int
	Industries    []int
	Flags         Flags
}

// Granularity returns the period resolution implied by the query mode.
func (q Query) Granularity() Granularity {
	if q.Flags.Summary {
		return GranularityYear
	}
	return GranularityDay
}

// Operation returns the resource the query targets.
func (q Query) Operation() Operation {
	if q.Flags.Summary {
		return OpValues
	}
	return OpDocumentValues
}
