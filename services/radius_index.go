package services

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"property-pipeline/models"
)

const (
	earthRadiusMeters = 6371008.8
	metersPerDegree   = 2 * math.Pi * earthRadiusMeters / 360
	maxGeohashChars   = 12
)

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// radiusIndex buckets facilities into geohash cells at least radius wide, so
// every facility within radius of a point lies in the point's cell or one of
// its eight neighbours.
type radiusIndex struct {
	facilities []models.Facility
	radius     float64
	chars      uint
	cells      map[string][]int
}

func newRadiusIndex(facilities []models.Facility, radius float64) *radiusIndex {
	maxLat := 0.0
	for _, f := range facilities {
		maxLat = math.Max(maxLat, math.Abs(f.Latitude))
	}

	ix := &radiusIndex{
		facilities: facilities,
		radius:     radius,
		chars:      geohashCharsFor(radius, math.Min(maxLat+1, 89)),
	}
	if ix.chars == 0 {
		return ix
	}

	ix.cells = make(map[string][]int)
	for i, f := range facilities {
		h := geohash.EncodeWithPrecision(f.Latitude, f.Longitude, ix.chars)
		ix.cells[h] = append(ix.cells[h], i)
	}
	return ix
}

// geohashCharsFor picks the longest geohash whose cells are at least radius
// meters tall and wide at latitude lat. Zero means no precision is coarse
// enough and callers should scan.
func geohashCharsFor(radius, lat float64) uint {
	for chars := uint(maxGeohashChars); chars >= 1; chars-- {
		bits := 5 * chars
		latBits := bits / 2
		lonBits := bits - latBits
		height := 180 / math.Pow(2, float64(latBits)) * metersPerDegree
		width := 360 / math.Pow(2, float64(lonBits)) * metersPerDegree * math.Cos(lat*math.Pi/180)
		if height >= radius && width >= radius {
			return chars
		}
	}
	return 0
}

// count returns the number of facilities strictly closer than radius.
func (ix *radiusIndex) count(lat, lon float64) int {
	if ix.chars == 0 {
		n := 0
		for _, f := range ix.facilities {
			if HaversineMeters(lat, lon, f.Latitude, f.Longitude) < ix.radius {
				n++
			}
		}
		return n
	}

	h := geohash.EncodeWithPrecision(lat, lon, ix.chars)
	visited := make(map[string]bool, 9)
	n := 0
	for _, cell := range append([]string{h}, geohash.Neighbors(h)...) {
		if visited[cell] {
			continue
		}
		visited[cell] = true
		for _, i := range ix.cells[cell] {
			f := ix.facilities[i]
			if HaversineMeters(lat, lon, f.Latitude, f.Longitude) < ix.radius {
				n++
			}
		}
	}
	return n
}
