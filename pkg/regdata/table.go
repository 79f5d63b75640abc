package regdata

import (
	"sort"
	"strconv"
)

// ResultRow is one observation.
type ResultRow struct {
	JurisdictionID int
	SeriesID       int
	Period         Period
	AgencyID       *int
	IndustryID     *int
	DocumentID     *int64
	Version        *int
	Value          float64
	// Extra holds passthrough string columns such as series_name.
	Extra map[string]string
}

// RowKey is the uniqueness tuple of a row within one table.
type RowKey struct {
	JurisdictionID int
	SeriesID       int
	Period         Period
	AgencyID       int
	HasAgency      bool
	IndustryID     int
	HasIndustry    bool
	DocumentID     int64
	HasDocument    bool
	Version        int
	HasVersion     bool
}

// Key returns the uniqueness tuple of r.
func (r ResultRow) Key() RowKey {
	k := RowKey{JurisdictionID: r.JurisdictionID, SeriesID: r.SeriesID, Period: r.Period}
	if r.AgencyID != nil {
		k.AgencyID, k.HasAgency = *r.AgencyID, true
	}
	if r.IndustryID != nil {
		k.IndustryID, k.HasIndustry = *r.IndustryID, true
	}
	if r.DocumentID != nil {
		k.DocumentID, k.HasDocument = *r.DocumentID, true
	}
	if r.Version != nil {
		k.Version, k.HasVersion = *r.Version, true
	}
	return k
}

// ResultTable is the ordered, column-typed output of one resolution call.
// It is produced fresh per call and owned by the caller afterwards.
type ResultTable struct {
	Granularity Granularity
	Columns     []Column
	Rows        []ResultRow
	// Dropped counts rows discarded because a typed field could not be parsed.
	Dropped int
	// Duplicates counts rows that replaced an earlier row with the same key.
	Duplicates int

	index map[RowKey]int
}

// NewTable returns an empty table with the core columns for g.
func NewTable(g Granularity) *ResultTable {
	return &ResultTable{
		Granularity: g,
		Columns:     CoreColumns(g),
		Rows:        []ResultRow{},
		index:       make(map[RowKey]int),
	}
}

// Len returns the number of rows.
func (t *ResultTable) Len() int { return len(t.Rows) }

// Append adds r in arrival order. A row whose key was already seen replaces
// the earlier row's content in place (last write wins) and is counted in
// Duplicates. Extra columns not seen before are appended in name order.
func (t *ResultTable) Append(r ResultRow) {
	if t.index == nil {
		t.reindex()
	}
	if len(r.Extra) > 0 {
		names := make([]string, 0, len(r.Extra))
		for name := range r.Extra {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t.addExtraColumn(name)
		}
	}
	k := r.Key()
	if i, ok := t.index[k]; ok {
		t.Rows[i] = r
		t.Duplicates++
		return
	}
	t.index[k] = len(t.Rows)
	t.Rows = append(t.Rows, r)
}

// AddColumn registers a passthrough string column so it appears in the
// header even when no row carries it.
func (t *ResultTable) AddColumn(name string) { t.addExtraColumn(name) }

func (t *ResultTable) addExtraColumn(name string) {
	for _, c := range t.Columns {
		if c.Name == name {
			return
		}
	}
	t.Columns = append(t.Columns, Column{Name: name, Type: TypeString})
}

func (t *ResultTable) reindex() {
	t.index = make(map[RowKey]int, len(t.Rows))
	for i, r := range t.Rows {
		t.index[r.Key()] = i
	}
}

// Header returns the column names in order.
func (t *ResultTable) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Cells renders row i as strings in column order. Absent optional values
// render as "".
func (t *ResultTable) Cells(i int) []string {
	r := t.Rows[i]
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = r.cell(c.Name)
	}
	return out
}

// Value returns the typed cell of row i in the named column, or nil when the
// column is unknown or the cell is absent.
func (t *ResultTable) Value(i int, column string) any {
	r := t.Rows[i]
	switch column {
	case ColJurisdictionID:
		return r.JurisdictionID
	case ColSeriesID:
		return r.SeriesID
	case ColYear:
		return r.Period.Year
	case ColDate:
		return r.Period.String()
	case ColValue:
		return r.Value
	case ColAgencyID:
		return derefInt(r.AgencyID)
	case ColIndustryID:
		return derefInt(r.IndustryID)
	case ColVersion:
		return derefInt(r.Version)
	case ColDocumentID:
		if r.DocumentID == nil {
			return nil
		}
		return *r.DocumentID
	}
	if v, ok := r.Extra[column]; ok {
		return v
	}
	return nil
}

// JoinKeys returns the metadata join identifiers of row i.
func (t *ResultTable) JoinKeys(i int) JoinKey {
	r := t.Rows[i]
	return JoinKey{JurisdictionID: r.JurisdictionID, AgencyID: r.AgencyID, IndustryID: r.IndustryID}
}

func (r ResultRow) cell(column string) string {
	switch column {
	case ColJurisdictionID:
		return strconv.Itoa(r.JurisdictionID)
	case ColSeriesID:
		return strconv.Itoa(r.SeriesID)
	case ColYear:
		return strconv.Itoa(r.Period.Year)
	case ColDate:
		return r.Period.String()
	case ColValue:
		return strconv.FormatFloat(r.Value, 'f', -1, 64)
	case ColAgencyID:
		return formatIntPtr(r.AgencyID)
	case ColIndustryID:
		return formatIntPtr(r.IndustryID)
	case ColVersion:
		return formatIntPtr(r.Version)
	case ColDocumentID:
		if r.DocumentID == nil {
			return ""
		}
		return strconv.FormatInt(*r.DocumentID, 10)
	}
	return r.Extra[column]
}

func formatIntPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func derefInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
