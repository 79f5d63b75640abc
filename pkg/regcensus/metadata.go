package regcensus

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"

	"github.com/QuantGov/regcensus-api-go/pkg/assemble"
	"github.com/QuantGov/regcensus-api-go/pkg/metadata"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// DefaultIndustryStandard is the classification used when none is named.
const DefaultIndustryStandard = "NAICS"

// ListDocumentTypes returns the named document types, optionally limited to
// one jurisdiction, sorted by name.
func (c *Client) ListDocumentTypes(ctx context.Context, jurisdictionID int) ([]regdata.DocumentType, error) {
	params := url.Values{}
	if jurisdictionID > 0 {
		params.Set("jurisdiction", strconv.Itoa(jurisdictionID))
	}
	all, err := list[regdata.DocumentType](ctx, c, PathDocumentTypes, params)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, dt := range all {
		if dt.Name != "" {
			out = append(out, dt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListJurisdictions returns every jurisdiction in service order.
func (c *Client) ListJurisdictions(ctx context.Context) ([]regdata.Jurisdiction, error) {
	return list[regdata.Jurisdiction](ctx, c, PathJurisdictions, nil)
}

// ListSeries returns the series sorted by name. A positive jurisdictionID
// keeps only series with data for that jurisdiction.
func (c *Client) ListSeries(ctx context.Context, jurisdictionID int) ([]regdata.Series, error) {
	series, err := c.listSeries(ctx, jurisdictionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Name < series[j].Name })
	return series, nil
}

func (c *Client) listSeries(ctx context.Context, jurisdictionID int) ([]regdata.Series, error) {
	series, err := list[regdata.Series](ctx, c, PathSeries, nil)
	if err != nil || jurisdictionID <= 0 {
		return series, err
	}

	entries, err := c.GetDatafinder(ctx, jurisdictionID, 0)
	if err != nil {
		return nil, err
	}
	available := make(map[int]bool, len(entries))
	for _, e := range entries {
		available[e.SeriesID] = true
	}
	return slices.DeleteFunc(series, func(s regdata.Series) bool { return !available[s.ID] }), nil
}

// AgencyFilter selects agencies by jurisdiction or by name keyword. Keyword
// wins when both are set.
type AgencyFilter struct {
	JurisdictionID int
	Keyword        string
}

// ListAgencies returns the named agencies matching f, sorted by name.
func (c *Client) ListAgencies(ctx context.Context, f AgencyFilter) ([]regdata.Agency, error) {
	var (
		path   string
		params = url.Values{}
	)
	switch {
	case f.Keyword != "":
		path = PathAgencyKeyword
		params.Set("keyword", f.Keyword)
	case f.JurisdictionID > 0:
		path = PathAgencies
		params.Set("jurisdiction", strconv.Itoa(f.JurisdictionID))
	default:
		return nil, regerr.Validation(regerr.KindMissingParameter, "jurisdiction", "either a jurisdiction or a keyword is required")
	}

	all, err := list[regdata.Agency](ctx, c, path, params)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if a.Name != "" {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// IndustryFilter selects industry codes. Zero values select level 3 of the
// NAICS standard with no keyword.
type IndustryFilter struct {
	Level    int
	Standard string
	Keyword  string
}

// ListIndustries returns the industry codes matching f, sorted by code.
func (c *Client) ListIndustries(ctx context.Context, f IndustryFilter) ([]regdata.Industry, error) {
	if f.Level <= 0 {
		f.Level = regdata.DefaultIndustryLevel
	}
	if f.Standard == "" {
		f.Standard = DefaultIndustryStandard
	}
	params := url.Values{}
	params.Set("labellevel", strconv.Itoa(f.Level))
	if f.Keyword != "" {
		params.Set("keyword", f.Keyword)
	}
	params.Set("labelsource", f.Standard)

	industries, err := list[regdata.Industry](ctx, c, PathLabels, params)
	if err != nil {
		return nil, err
	}
	for i := range industries {
		if industries[i].Level == 0 {
			industries[i].Level = f.Level
		}
	}
	sort.SliceStable(industries, func(i, j int) bool { return industries[i].Code < industries[j].Code })
	return industries, nil
}

// ListClusters returns the named agency clusters sorted by name.
func (c *Client) ListClusters(ctx context.Context) ([]regdata.Cluster, error) {
	all, err := list[regdata.Cluster](ctx, c, PathClusters, nil)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, cl := range all {
		if cl.Name != "" {
			out = append(out, cl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetDatafinder returns the data availability entries of a jurisdiction.
// A positive documentType narrows them to one document type.
func (c *Client) GetDatafinder(ctx context.Context, jurisdictionID, documentType int) ([]regdata.DatafinderEntry, error) {
	if jurisdictionID <= 0 {
		return nil, regerr.Validation(regerr.KindMissingParameter, "jurisdiction", "a jurisdiction is required")
	}
	params := url.Values{}
	params.Set("jurisdiction", strconv.Itoa(jurisdictionID))
	if documentType > 0 {
		params.Set("documenttype", strconv.Itoa(documentType))
	}
	return list[regdata.DatafinderEntry](ctx, c, PathDatafinder, params)
}

// GetPeriods returns the (series, year) pairs with data for a jurisdiction,
// ordered by series then year.
func (c *Client) GetPeriods(ctx context.Context, jurisdictionID, documentType int) ([]regdata.PeriodAvailability, error) {
	entries, err := c.GetDatafinder(ctx, jurisdictionID, documentType)
	if err != nil {
		return nil, err
	}
	seen := make(map[regdata.PeriodAvailability]bool, len(entries))
	out := make([]regdata.PeriodAvailability, 0, len(entries))
	for _, e := range entries {
		p := regdata.PeriodAvailability{
			JurisdictionID: e.JurisdictionID,
			DocumentTypeID: e.DocumentTypeID,
			SeriesID:       e.SeriesID,
			Year:           e.Year,
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

// ListDates returns the sorted distinct years with data for a jurisdiction.
func (c *Client) ListDates(ctx context.Context, jurisdictionID, documentType int) ([]int, error) {
	entries, err := c.GetDatafinder(ctx, jurisdictionID, documentType)
	if err != nil {
		return nil, err
	}
	years := make([]int, 0, len(entries))
	for _, e := range entries {
		years = append(years, e.Year)
	}
	slices.Sort(years)
	return slices.Compact(years), nil
}

// GetVersions returns the dataset versions of a jurisdiction newest first.
func (c *Client) GetVersions(ctx context.Context, jurisdictionID, documentType int) ([]regdata.Version, error) {
	if jurisdictionID <= 0 {
		return nil, regerr.Validation(regerr.KindMissingParameter, "jurisdiction", "a jurisdiction is required")
	}
	if documentType <= 0 {
		documentType = regdata.DefaultDocumentType
	}
	params := url.Values{}
	params.Set("jurisdiction", strconv.Itoa(jurisdictionID))
	params.Set("documentType", strconv.Itoa(documentType))

	versions, err := list[regdata.Version](ctx, c, PathVersion, params)
	if err != nil {
		return nil, err
	}
	return metadata.SortVersions(versions), nil
}

// LatestVersion returns the newest dataset version. ok is false when the
// service lists none.
func (c *Client) LatestVersion(ctx context.Context, jurisdictionID, documentType int) (v regdata.Version, ok bool, err error) {
	versions, err := c.GetVersions(ctx, jurisdictionID, documentType)
	if err != nil {
		return regdata.Version{}, false, err
	}
	v, ok = metadata.Latest(versions)
	return v, ok, nil
}

// GetDocumentation returns the project documentation records.
func (c *Client) GetDocumentation(ctx context.Context) ([]regdata.Record, error) {
	body, err := c.get(ctx, PathDocumentation, nil)
	if err != nil {
		return nil, err
	}
	recs, err := assemble.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", PathDocumentation, err)
	}
	out := make([]regdata.Record, len(recs))
	for i, r := range recs {
		out[i] = regdata.Record(r)
	}
	return out, nil
}
