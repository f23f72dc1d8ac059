package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/models"
)

func pp(id string, date string, price float64) models.PricePoint {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.PricePoint{PropertyID: id, Date: d, Price: &price}
}

func TestInterpolateBetweenObservedYears(t *testing.T) {
	series, err := Interpolate([]models.PricePoint{
		pp("a", "2005-07-01", 180000),
		pp("a", "2001-03-15", 100000),
	})
	require.NoError(t, err)
	require.Len(t, series, 5)

	for i, row := range series {
		year := 2001 + i
		want := 100000 + (180000-100000)*float64(year-2001)/4
		assert.Equal(t, "a", row.PropertyID)
		assert.Equal(t, year, row.Year)
		assert.InDelta(t, want, row.InterpolatedPrice, 1e-6, "year %d", year)
	}
}

func TestInterpolateSingleTransaction(t *testing.T) {
	series, err := Interpolate([]models.PricePoint{pp("solo", "2010-01-01", 250000)})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2010, series[0].Year)
	assert.Equal(t, 250000.0, series[0].InterpolatedPrice)
}

func TestInterpolateSameYearMean(t *testing.T) {
	series, err := Interpolate([]models.PricePoint{
		pp("a", "2003-01-01", 100000),
		pp("a", "2003-11-30", 120000),
		pp("a", "2005-06-01", 150000),
	})
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 110000.0, series[0].InterpolatedPrice)
	assert.Equal(t, 130000.0, series[1].InterpolatedPrice)
	assert.Equal(t, 150000.0, series[2].InterpolatedPrice)
}

func TestInterpolatePerIdentitySpan(t *testing.T) {
	series, err := Interpolate([]models.PricePoint{
		pp("b", "1999-01-01", 50000),
		pp("a", "2010-01-01", 200000),
		pp("a", "2012-01-01", 220000),
		pp("b", "2000-01-01", 60000),
	})
	require.NoError(t, err)

	var years []int
	var ids []string
	for _, r := range series {
		ids = append(ids, r.PropertyID)
		years = append(years, r.Year)
	}
	assert.Equal(t, []string{"a", "a", "a", "b", "b"}, ids)
	assert.Equal(t, []int{2010, 2011, 2012, 1999, 2000}, years)
}

func TestInterpolateMultipleSegments(t *testing.T) {
	series, err := Interpolate([]models.PricePoint{
		pp("a", "2000-01-01", 100),
		pp("a", "2002-01-01", 200),
		pp("a", "2006-01-01", 100),
	})
	require.NoError(t, err)
	require.Len(t, series, 7)

	want := []float64{100, 150, 200, 175, 150, 125, 100}
	for i, w := range want {
		assert.InDelta(t, w, series[i].InterpolatedPrice, 1e-9, "year %d", series[i].Year)
	}
}

func TestInterpolateRejectsMissingPrice(t *testing.T) {
	_, err := Interpolate([]models.PricePoint{{PropertyID: "a", Date: time.Now()}})
	assert.ErrorIs(t, err, ErrInput)
}

func TestObservedYears(t *testing.T) {
	obs := ObservedYears([]models.PricePoint{
		pp("a", "2001-01-01", 1),
		pp("a", "2005-01-01", 1),
	})
	assert.True(t, obs["a"][2001])
	assert.True(t, obs["a"][2005])
	assert.False(t, obs["a"][2003])
}
