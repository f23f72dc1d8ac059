package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/models"
	"property-pipeline/services"
)

func sale(id, record string, date string) models.SaleRecord {
	d, _ := time.Parse("2006-01-02", date)
	return models.SaleRecord{PropertyID: id, Transaction: models.Transaction{RecordID: record, Date: d}}
}

func TestLatestSales(t *testing.T) {
	props := latestSales([]models.SaleRecord{
		sale("b", "b1", "2003-01-01"),
		sale("a", "a1", "2001-01-01"),
		sale("a", "a2", "2004-01-01"),
		sale("a", "a3", "2002-01-01"),
		sale("b", "b2", "2003-01-01"),
	})

	require.Len(t, props, 2)
	assert.Equal(t, "a", props[0].PropertyID)
	assert.Equal(t, "a2", props[0].Sale.RecordID, "latest date wins")
	assert.Equal(t, 3, props[0].SaleCount)
	assert.Equal(t, "b2", props[1].Sale.RecordID, "equal dates keep the later record")
	assert.Equal(t, 2, props[1].SaleCount)
}

func TestLatestSalesCountsDistinctTransactions(t *testing.T) {
	price := 100000.0
	anon := sale("c", "", "2005-06-01")
	anon.Price = &price

	props := latestSales([]models.SaleRecord{
		// each sale joined onto two locations
		sale("a", "a1", "2001-01-01"),
		sale("a", "a1", "2001-01-01"),
		sale("a", "a2", "2004-01-01"),
		sale("a", "a2", "2004-01-01"),
		anon,
		anon,
	})

	require.Len(t, props, 2)
	assert.Equal(t, 2, props[0].SaleCount)
	assert.Equal(t, "a2", props[0].Sale.RecordID)
	assert.Equal(t, 1, props[1].SaleCount, "records without an id fall back to date and price")
}

func TestMergeBase(t *testing.T) {
	lat, lon := 51.7, -2.7
	locs := []models.Location{
		{Postcode: "NP25 3AB", Latitude: &lat, Longitude: &lon},
		{Postcode: ""},
	}
	txs := []models.Transaction{
		{RecordID: "1", Postcode: "NP25 3AB"},
		{RecordID: "2", Postcode: "NP7 5AA"},
		{RecordID: "3", Postcode: ""},
	}

	merged, unmatched, err := mergeBase(txs, locs, 0)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.NotNil(t, merged[0].Location)
	assert.Nil(t, merged[1].Location)
	assert.Nil(t, merged[2].Location, "empty postcodes never join")
	assert.Equal(t, []int{1, 2}, unmatched)
}

func TestCheckCardinality(t *testing.T) {
	assert.NoError(t, checkCardinality("x", 10, 10, 0))
	assert.ErrorIs(t, checkCardinality("x", 10, 11, 0), services.ErrJoinCardinality)
	assert.NoError(t, checkCardinality("x", 10, 11, 0.1))
	assert.NoError(t, checkCardinality("x", 0, 0, 0))
}

func TestMergeSeriesFlagsObservedYears(t *testing.T) {
	props := []models.Property{{PropertyID: "a"}}
	series := []models.YearPrice{
		{PropertyID: "a", Year: 2001, InterpolatedPrice: 1},
		{PropertyID: "a", Year: 2002, InterpolatedPrice: 2},
		{PropertyID: "a", Year: 2003, InterpolatedPrice: 3},
	}
	observed := map[string]map[int]bool{"a": {2001: true, 2003: true}}

	rows, err := mergeSeries(props, series, observed, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].TruePrice)
	assert.False(t, rows[1].TruePrice)
	assert.True(t, rows[2].TruePrice)

	_, err = mergeSeries(nil, series, observed, 0)
	assert.ErrorIs(t, err, services.ErrInput)
}

func TestMergeSeriesRejectsRowsBeyondObservedSpan(t *testing.T) {
	props := []models.Property{{PropertyID: "a"}, {PropertyID: "b"}}
	series := []models.YearPrice{
		{PropertyID: "a", Year: 2001},
		{PropertyID: "a", Year: 2002},
		{PropertyID: "b", Year: 2010},
		{PropertyID: "b", Year: 2010},
	}
	observed := map[string]map[int]bool{"a": {2001: true, 2002: true}, "b": {2010: true}}

	_, err := mergeSeries(props, series, observed, 0)
	assert.ErrorIs(t, err, services.ErrJoinCardinality)

	rows, err := mergeSeries(props, series, observed, 0.5)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestSpanYears(t *testing.T) {
	assert.Equal(t, 0, spanYears(nil))
	assert.Equal(t, 6, spanYears(map[string]map[int]bool{
		"a": {2001: true, 2004: true},
		"b": {1999: true},
		"c": {2010: true, 2011: true},
	}))
}

func TestSortRows(t *testing.T) {
	a, b := &models.Property{PropertyID: "a"}, &models.Property{PropertyID: "b"}
	rows := []models.PropertyYear{{Property: b, Year: 2001}, {Property: a, Year: 2003}, {Property: a, Year: 2002}}
	sortRows(rows)

	assert.Equal(t, "a", rows[0].Property.PropertyID)
	assert.Equal(t, 2002, rows[0].Year)
	assert.Equal(t, 2003, rows[1].Year)
	assert.Equal(t, "b", rows[2].Property.PropertyID)
}

func TestStageNames(t *testing.T) {
	var names []string
	for _, s := range Stages() {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{
		"LOAD_SOURCES", "MERGE_BASE", "BUILD_IDENTITY", "DERIVE_POSTCODE_AND_TYPE",
		"BUILD_PRICE_SERIES", "MERGE_SERIES", "MATCH_FACILITIES", "EMIT",
	}, names)
	assert.Equal(t, "UNKNOWN", Stage(99).String())
}
