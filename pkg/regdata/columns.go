package regdata

// Identifier column names. They match the identifier fields of the metadata
// records above (Jurisdiction, Agency, Industry, Series) so a ResultTable can
// be joined against a metadata table on these keys without renaming.
const (
	ColJurisdictionID = "jurisdiction_id"
	ColSeriesID       = "series_id"
	ColAgencyID       = "agency_id"
	ColIndustryID     = "industry_id"
	ColDocumentID     = "document_id"
	ColYear           = "year"
	ColDate           = "date"
	ColVersion        = "version"
	ColValue          = "value"
)

// ColumnType is the type a column's cells are coerced to.
type ColumnType string

const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeYear   ColumnType = "year"
	TypeDate   ColumnType = "date"
	TypeString ColumnType = "string"
)

// Column describes one table column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// CoreColumns returns the fixed column set for a mode. Passthrough columns
// are appended after these by the assembler.
func CoreColumns(g Granularity) []Column {
	if g == GranularityDay {
		return []Column{
			{ColJurisdictionID, TypeInt},
			{ColSeriesID, TypeInt},
			{ColDate, TypeDate},
			{ColDocumentID, TypeInt},
			{ColAgencyID, TypeInt},
			{ColIndustryID, TypeInt},
			{ColVersion, TypeInt},
			{ColValue, TypeFloat},
		}
	}
	return []Column{
		{ColJurisdictionID, TypeInt},
		{ColSeriesID, TypeInt},
		{ColYear, TypeYear},
		{ColAgencyID, TypeInt},
		{ColIndustryID, TypeInt},
		{ColVersion, TypeInt},
		{ColValue, TypeFloat},
	}
}

// JoinKey carries the identifier columns of one row used to join with
// metadata tables.
type JoinKey struct {
	JurisdictionID int
	AgencyID       *int
	IndustryID     *int
}

// JoinKeyColumns lists the join column names in JoinKey field order.
func JoinKeyColumns() []string {
	return []string{ColJurisdictionID, ColAgencyID, ColIndustryID}
}
