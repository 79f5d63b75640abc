package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantGov/regcensus-api-go/pkg/metadata"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

func testLookup(t *testing.T, opts ...metadata.Option) *metadata.Index {
	t.Helper()
	us := 38
	ix, err := metadata.New(
		[]regdata.Jurisdiction{
			{ID: 38, Name: "United States"},
			{ID: 4, Name: "Alaska", ParentID: &us},
			{ID: 45, Name: "Virginia", ParentID: &us},
			{ID: 59, Name: "Canada"},
		},
		[]regdata.Series{{ID: 1, Name: "Restrictions"}, {ID: 2, Name: "Words"}},
		opts...,
	)
	require.NoError(t, err)
	return ix
}

func TestNormalizeDefaults(t *testing.T) {
	q, err := Normalize(Args{
		Jurisdiction: One(38),
		Series:       Many(1, 2),
		Date:         Years(2010, 2019),
	}, testLookup(t))
	require.NoError(t, err)

	assert.Equal(t, []int{38}, q.Jurisdictions)
	assert.Equal(t, []int{1, 2}, q.Series)
	require.Len(t, q.Periods, 10)
	assert.Equal(t, regdata.Year(2010), q.Periods[0])
	assert.Equal(t, regdata.Year(2019), q.Periods[9])
	assert.Empty(t, q.Agencies)
	assert.Empty(t, q.Industries)

	assert.True(t, q.Flags.Summary)
	assert.True(t, q.Flags.Filtered)
	assert.Equal(t, 3, q.Flags.IndustryLevel)
	assert.Equal(t, 1, q.Flags.DocumentType)
	assert.Nil(t, q.Flags.Version)
}

func TestNormalizeMissingParameters(t *testing.T) {
	lookup := testLookup(t)
	tests := []struct {
		name  string
		args  Args
		param string
	}{
		{"no jurisdiction", Args{Series: One(1), Date: Years(2019)}, "jurisdiction"},
		{"no series", Args{Jurisdiction: One(38), Date: Years(2019)}, "series"},
		{"no date", Args{Jurisdiction: One(38), Series: One(1)}, "date"},
		{"empty many", Args{Jurisdiction: Many[int](), Series: One(1), Date: Years(2019)}, "jurisdiction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.args, lookup)
			require.Error(t, err)
			assert.True(t, errors.Is(err, regerr.ErrMissingParameter))

			var ve *regerr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Param)
		})
	}
}

func TestCountryExpansion(t *testing.T) {
	lookup := testLookup(t)

	ids, err := Jurisdictions([]int{38}, nil, true, lookup)
	require.NoError(t, err)
	assert.Equal(t, []int{38, 4, 45}, ids)

	ids, err = Jurisdictions([]int{45, 38, 4}, nil, true, lookup)
	require.NoError(t, err)
	assert.Equal(t, []int{45, 38, 4}, ids, "no duplicates, first-seen order")

	ids, err = Jurisdictions([]int{59}, nil, true, lookup)
	require.NoError(t, err)
	assert.Equal(t, []int{59}, ids)

	_, err = Jurisdictions([]int{1000}, nil, true, lookup)
	require.ErrorIs(t, err, regerr.ErrInvalidJurisdiction)
}

func TestJurisdictionNames(t *testing.T) {
	lookup := testLookup(t)

	ids, err := Jurisdictions([]int{59}, []string{"united states", "Canada"}, false, lookup)
	require.NoError(t, err)
	assert.Equal(t, []int{59, 38}, ids)

	_, err = Jurisdictions(nil, []string{"Atlantis"}, false, lookup)
	require.ErrorIs(t, err, regerr.ErrInvalidJurisdiction)

	_, err = Jurisdictions([]int{12345}, nil, false, lookup)
	require.ErrorIs(t, err, regerr.ErrInvalidJurisdiction)
}

func TestPeriods(t *testing.T) {
	d := func(s string) regdata.Period { return regdata.MustParsePeriod(s) }

	t.Run("year range", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2010"), d("2012")}, regdata.GranularityYear, true)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2010"), d("2011"), d("2012")}, got)
	})

	t.Run("day range crosses month", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2020-02-27"), d("2020-03-01")}, regdata.GranularityDay, true)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2020-02-27"), d("2020-02-28"), d("2020-02-29"), d("2020-03-01")}, got)
	})

	t.Run("single element range", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2015")}, regdata.GranularityYear, true)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2015")}, got)
	})

	t.Run("start equals end", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2015"), d("2015")}, regdata.GranularityYear, true)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2015")}, got)
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := Periods([]regdata.Period{d("2019"), d("2010")}, regdata.GranularityYear, true)
		require.ErrorIs(t, err, regerr.ErrInvalidDateRange)
		assert.Contains(t, err.Error(), "date")
	})

	t.Run("too many range elements", func(t *testing.T) {
		_, err := Periods([]regdata.Period{d("2010"), d("2011"), d("2012")}, regdata.GranularityYear, true)
		require.ErrorIs(t, err, regerr.ErrInvalidDateRange)
	})

	t.Run("list keeps order and drops duplicates", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2019"), d("2010"), d("2019"), d("2012")}, regdata.GranularityYear, false)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2019"), d("2010"), d("2012")}, got)
	})

	t.Run("full date in summary mode reduces to year", func(t *testing.T) {
		got, err := Periods([]regdata.Period{d("2019-06-30")}, regdata.GranularityYear, false)
		require.NoError(t, err)
		assert.Equal(t, []regdata.Period{d("2019")}, got)
	})

	t.Run("bare year in document mode", func(t *testing.T) {
		_, err := Periods([]regdata.Period{d("2019")}, regdata.GranularityDay, false)
		require.ErrorIs(t, err, regerr.ErrDateGranularityMismatch)
	})
}

func TestNormalizeDocumentLevel(t *testing.T) {
	lookup := testLookup(t)

	_, err := Normalize(Args{
		Jurisdiction:  One(38),
		Series:        One(1),
		Date:          Years(2019, 2020),
		DocumentLevel: true,
	}, lookup)
	require.ErrorIs(t, err, regerr.ErrDateGranularityMismatch)
	assert.Equal(t, regerr.KindDateGranularityMismatch, regerr.KindOf(err))

	q, err := Normalize(Args{
		Jurisdiction:  One(38),
		Series:        One(1),
		Date:          MustDates("2020-01-01", "2020-01-03"),
		DocumentLevel: true,
	}, lookup)
	require.NoError(t, err)
	assert.False(t, q.Flags.Summary)
	assert.Equal(t, regdata.OpDocumentValues, q.Operation())
	require.Len(t, q.Periods, 3)
	assert.Equal(t, regdata.Date(2020, time.January, 3), q.Periods[2])
}

func TestIndustries(t *testing.T) {
	withTable := testLookup(t, metadata.WithIndustries(3, []regdata.Industry{
		{ID: 1011, Code: "111"},
		{ID: 1033, Code: "33"},
	}))

	ids, err := Industries([]string{"111", "33", "111"}, 3, withTable)
	require.NoError(t, err)
	assert.Equal(t, []int{1011, 1033}, ids)

	_, err = Industries([]string{"999"}, 3, withTable)
	require.ErrorIs(t, err, regerr.ErrInvalidIndustry)

	ids, err = Industries([]string{"111", "33"}, 4, withTable)
	require.NoError(t, err)
	assert.Equal(t, []int{111, 33}, ids, "codes pass through without a table for the level")

	_, err = Industries([]string{"abc"}, 4, withTable)
	require.ErrorIs(t, err, regerr.ErrInvalidIndustry)
}

func TestDates(t *testing.T) {
	v, err := Dates("2019", "2020-01-31")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	_, err = Dates("2019-13-01")
	require.ErrorIs(t, err, regerr.ErrInvalidDateRange)
	assert.True(t, regerr.IsValidation(err))
}

func TestValuesAreCopied(t *testing.T) {
	src := []int{1, 2}
	v := Many(src...)
	src[0] = 99
	assert.Equal(t, []int{1, 2}, v.Slice())

	out := v.Slice()
	out[1] = 77
	assert.Equal(t, []int{1, 2}, v.Slice())
	assert.True(t, Values[int]{}.IsZero())
}

func TestCheckNeedsNoLookup(t *testing.T) {
	tests := []struct {
		name string
		args Args
		kind regerr.Kind
	}{
		{"valid", Args{Jurisdiction: One(999), Series: One(1), Date: Years(2019)}, ""},
		{"no series", Args{Jurisdiction: One(38), Date: Years(2019)}, regerr.KindMissingParameter},
		{"no date", Args{Jurisdiction: One(38), Series: One(1)}, regerr.KindMissingParameter},
		{"bare year at document level", Args{Jurisdiction: One(38), Series: One(1), Date: Years(2010), DocumentLevel: true}, regerr.KindDateGranularityMismatch},
		{"reversed range", Args{Jurisdiction: One(38), Series: One(1), Date: Years(2019, 2010)}, regerr.KindInvalidDateRange},
		{"negative industry level", Args{Jurisdiction: One(38), Series: One(1), Date: Years(2019), IndustryLevel: -2}, regerr.KindInvalidIndustry},
		{"negative page", Args{Jurisdiction: One(38), Series: One(1), Date: Years(2019), Page: -1}, regerr.KindInvalidParameter},
		{"negative document type", Args{Jurisdiction: One(38), Series: One(1), Date: Years(2019), DocumentType: -1}, regerr.KindInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.args)
			if tt.kind == "" {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, regerr.KindOf(err))
		})
	}
}

func TestNormalizeClusterAndPage(t *testing.T) {
	q, err := Normalize(Args{
		Jurisdiction: One(38),
		Series:       One(1),
		Date:         Years(2019),
		Cluster:      Many(4, 7, 4),
		Page:         2,
	}, testLookup(t))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, q.Clusters)
	assert.Equal(t, 2, q.Flags.Page)
}
