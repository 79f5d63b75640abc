package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

func TestDecodeIntoSeries(t *testing.T) {
	body := doubleEncode(t, `[
		{"series_id": 1, "series_name": "Restrictions", "series_unit": "count", "periodicity": "annual, daily",
		 "agency_available": 1, "industry_available": "true", "occupation_available": false},
		{"series_id": "92", "series_name": "Restrictions by Industry", "periodicity": ["annual"], "agency_available": true}
	]`)

	series, skipped, err := DecodeInto[regdata.Series](body)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, series, 2)

	assert.Equal(t, regdata.Series{
		ID:            1,
		Name:          "Restrictions",
		Unit:          "count",
		Periodicities: []regdata.Periodicity{regdata.PeriodicityAnnual, regdata.PeriodicityDaily},
		ByAgency:      true,
		ByIndustry:    true,
	}, series[0])
	assert.Equal(t, 92, series[1].ID)
	assert.Equal(t, []regdata.Periodicity{regdata.PeriodicityAnnual}, series[1].Periodicities)
}

func TestDecodeIntoAliases(t *testing.T) {
	industries, _, err := DecodeInto[regdata.Industry]([]byte(`[
		{"label_id": 1011, "label_code": "111", "label_name": "Crop Production", "label_level": 3, "label_source": "NAICS"}
	]`))
	require.NoError(t, err)
	require.Len(t, industries, 1)
	assert.Equal(t, regdata.Industry{ID: 1011, Code: "111", Name: "Crop Production", Level: 3, Standard: "NAICS"}, industries[0])

	agencies, _, err := DecodeInto[regdata.Agency]([]byte(`[
		{"agency_id": 66, "agency_name": "Environmental Protection Agency", "a_jurisdiction_id": "38"}
	]`))
	require.NoError(t, err)
	require.Len(t, agencies, 1)
	assert.Equal(t, 38, agencies[0].JurisdictionID)

	clusters, _, err := DecodeInto[regdata.Cluster]([]byte(`[{"agency_cluster": 4, "cluster_name": "Financial"}]`))
	require.NoError(t, err)
	assert.Equal(t, []regdata.Cluster{{ID: 4, Name: "Financial"}}, clusters)

	finder, _, err := DecodeInto[regdata.DatafinderEntry]([]byte(`[
		{"jurisdiction_id": 38, "document_type_id": 1, "series_id": 1, "year": 2019,
		 "summary_endpoints": "/state-summary", "document_endpoints": "/state-documents", "label_endpoints": null}
	]`))
	require.NoError(t, err)
	require.Len(t, finder, 1)
	assert.Equal(t, "/state-summary", finder[0].SummaryEndpoint)
	assert.Empty(t, finder[0].LabelEndpoint)
}

func TestDecodeIntoParentPointer(t *testing.T) {
	js, _, err := DecodeInto[regdata.Jurisdiction]([]byte(`[
		{"jurisdiction_id": 38, "jurisdiction_name": "United States"},
		{"jurisdiction_id": 45, "jurisdiction_name": "Virginia", "jurisdiction_parent_id": 38}
	]`))
	require.NoError(t, err)
	require.Len(t, js, 2)
	assert.Nil(t, js[0].ParentID)
	require.NotNil(t, js[1].ParentID)
	assert.Equal(t, 38, *js[1].ParentID)
}

func TestDecodeIntoSkipsBadRecords(t *testing.T) {
	js, skipped, err := DecodeInto[regdata.Jurisdiction]([]byte(`[
		{"jurisdiction_id": "not a number", "jurisdiction_name": "X"},
		{"jurisdiction_id": 1, "jurisdiction_name": "Y"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, js, 1)
	assert.Equal(t, "Y", js[0].Name)
}

func TestDecodeIntoRejectsNonStruct(t *testing.T) {
	_, _, err := DecodeInto[int]([]byte(`[]`))
	require.Error(t, err)
}

func TestDecodeRecords(t *testing.T) {
	recs, err := DecodeRecords(doubleEncode(t, `[{"v_project": "RegData US", "citation": "McLaughlin et al.", "year": 2020, "weight": 0.5}]`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "RegData US", recs[0]["project"])
	assert.Equal(t, int64(2020), recs[0]["year"])
	assert.Equal(t, 0.5, recs[0]["weight"])
}
