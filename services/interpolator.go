package services

import (
	"fmt"
	"sort"

	"property-pipeline/models"
)

type yearMean struct {
	sum float64
	n   int
}

// Interpolate builds a yearly price series for every identity in points.
//
// Each identity's series spans its own first to last transaction year.
// Several sales in one year collapse to their mean; years between two known
// years are filled linearly in year-index space. Nothing is extrapolated, so an
// identity with a single sale yields a single row. Output is ordered by
// identity, then year.
func Interpolate(points []models.PricePoint) ([]models.YearPrice, error) {
	groups := make(map[string]map[int]*yearMean)
	for i, p := range points {
		if p.PropertyID == "" {
			return nil, fmt.Errorf("%w: price point %d has no property identity", ErrInput, i)
		}
		if p.Price == nil {
			return nil, fmt.Errorf("%w: property %s has a transaction on %s with no price",
				ErrInput, p.PropertyID, p.Date.Format("2006-01-02"))
		}

		years, ok := groups[p.PropertyID]
		if !ok {
			years = make(map[int]*yearMean)
			groups[p.PropertyID] = years
		}
		m, ok := years[p.Date.Year()]
		if !ok {
			m = &yearMean{}
			years[p.Date.Year()] = m
		}
		m.sum += *p.Price
		m.n++
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.YearPrice
	for _, id := range ids {
		out = append(out, seriesFor(id, groups[id])...)
	}
	return out, nil
}

func seriesFor(id string, years map[int]*yearMean) []models.YearPrice {
	known := make([]int, 0, len(years))
	for y := range years {
		known = append(known, y)
	}
	sort.Ints(known)

	price := func(y int) float64 {
		m := years[y]
		return m.sum / float64(m.n)
	}

	first, last := known[0], known[len(known)-1]
	series := make([]models.YearPrice, 0, last-first+1)
	series = append(series, models.YearPrice{PropertyID: id, Year: first, InterpolatedPrice: price(first)})

	for i := 1; i < len(known); i++ {
		y0, y1 := known[i-1], known[i]
		p0, p1 := price(y0), price(y1)
		span := float64(y1 - y0)
		for y := y0 + 1; y < y1; y++ {
			v := p0 + (p1-p0)*float64(y-y0)/span
			series = append(series, models.YearPrice{PropertyID: id, Year: y, InterpolatedPrice: v})
		}
		series = append(series, models.YearPrice{PropertyID: id, Year: y1, InterpolatedPrice: p1})
	}
	return series
}

// ObservedYears returns, per identity, the set of years with at least one
// actual transaction.
func ObservedYears(points []models.PricePoint) map[string]map[int]bool {
	out := make(map[string]map[int]bool)
	for _, p := range points {
		years, ok := out[p.PropertyID]
		if !ok {
			years = make(map[int]bool)
			out[p.PropertyID] = years
		}
		years[p.Date.Year()] = true
	}
	return out
}
