// Package regdata holds the data model shared by the query pipeline: metadata
// records returned by the lookup endpoints, the resolved Query, and the
// ResultTable produced by one resolution call.
package regdata

// Periodicity names a publication cadence of a series.
type Periodicity string

const (
	PeriodicityDaily  Periodicity = "daily"
	PeriodicityAnnual Periodicity = "annual"
)

// DocumentType identifies a class of source documents (regulations, statutes, ...).
type DocumentType struct {
	ID   int    `json:"document_type_id"`
	Name string `json:"document_type"`
}

// Jurisdiction is a country or a sub-national unit. ParentID is nil for
// countries and points to the parent country otherwise.
type Jurisdiction struct {
	ID       int    `json:"jurisdiction_id"`
	Name     string `json:"jurisdiction_name"`
	ParentID *int   `json:"parent_jurisdiction_id,omitempty"`
}

// IsCountry reports whether j has no parent.
func (j Jurisdiction) IsCountry() bool { return j.ParentID == nil }

// Series is a measured quantity scoped to a document type.
type Series struct {
	ID            int           `json:"series_id"`
	Name          string        `json:"series_name"`
	Unit          string        `json:"series_unit,omitempty"`
	Periodicities []Periodicity `json:"periodicity,omitempty"`
	ByAgency      bool          `json:"agency_available"`
	ByIndustry    bool          `json:"industry_available"`
	ByOccupation  bool          `json:"occupation_available"`
}

// Agency is a regulator within a jurisdiction.
type Agency struct {
	ID             int    `json:"agency_id"`
	Name           string `json:"agency_name"`
	Acronym        string `json:"agency_acronym,omitempty"`
	JurisdictionID int    `json:"jurisdiction_id"`
}

// Industry is a classification code (NAICS by default) with its service-side id.
type Industry struct {
	ID       int    `json:"industry_id"`
	Code     string `json:"industry_code"`
	Name     string `json:"industry_name"`
	Level    int    `json:"industry_level,omitempty"`
	Standard string `json:"industry_standard,omitempty"`
}

// Cluster groups agencies across jurisdictions.
type Cluster struct {
	ID   int    `json:"cluster_id"`
	Name string `json:"cluster_name"`
}

// PeriodAvailability reports a period for which a series has data.
type PeriodAvailability struct {
	JurisdictionID int `json:"jurisdiction_id"`
	DocumentTypeID int `json:"document_type_id"`
	SeriesID       int `json:"series_id"`
	Year           int `json:"year"`
}

// Version is a dataset version available for a jurisdiction.
type Version struct {
	ID             int    `json:"version_id"`
	Name           string `json:"version_name"`
	JurisdictionID int    `json:"jurisdiction_id"`
	DocumentTypeID int    `json:"document_type_id,omitempty"`
}

// DatafinderEntry maps a (jurisdiction, document type, series, year) to the
// endpoints serving it.
type DatafinderEntry struct {
	JurisdictionID   int    `json:"jurisdiction_id"`
	DocumentTypeID   int    `json:"document_type_id"`
	SeriesID         int    `json:"series_id"`
	Year             int    `json:"year"`
	SummaryEndpoint  string `json:"summary_endpoint,omitempty"`
	DocumentEndpoint string `json:"document_endpoint,omitempty"`
	LabelEndpoint    string `json:"label_endpoint,omitempty"`
}

// Record is an untyped record for endpoints without a fixed shape, such as
// project documentation.
type Record map[string]any
