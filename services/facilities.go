package services

import (
	"fmt"
	"math"
	"strings"

	"property-pipeline/models"
	"property-pipeline/utils"
)

// DefaultStoreRadiusMeters is the radius used for number_stores_in_radius.
const DefaultStoreRadiusMeters = 10000.0

// MatcherOptions tunes the facility matcher.
type MatcherOptions struct {
	RadiusMeters float64
	Workers      int
	ChunkSize    int
}

// FacilityMatcher attaches nearest-store, radius and postcode-density fields
// to properties.
//
// The nearest store uses Euclidean distance on raw latitude/longitude, an
// approximation that holds at regional scale; the metre distance to that same
// store is reported alongside. Radius counts use haversine metres.
type FacilityMatcher struct {
	facilities []models.Facility
	tree       *kdTree
	radius     *radiusIndex
	byArea     map[string]int
	byDistrict map[string]int
	bySector   map[string]int
	opts       MatcherOptions
	logger     *utils.Logger
}

// FilterFacilities keeps facilities whose county is one of counties, compared
// case-insensitively. An empty counties list keeps everything.
func FilterFacilities(facilities []models.Facility, counties []string) []models.Facility {
	if len(counties) == 0 {
		return facilities
	}
	want := make(map[string]struct{}, len(counties))
	for _, c := range counties {
		want[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	out := make([]models.Facility, 0, len(facilities))
	for _, f := range facilities {
		if _, ok := want[strings.ToLower(strings.TrimSpace(f.County))]; ok {
			out = append(out, f)
		}
	}
	return out
}

// NewFacilityMatcher indexes facilities. It fails with ErrNoFacilities when
// the set is empty.
func NewFacilityMatcher(facilities []models.Facility, opts MatcherOptions, logger *utils.Logger) (*FacilityMatcher, error) {
	if len(facilities) == 0 {
		return nil, fmt.Errorf("%w: facility set is empty after filtering", ErrNoFacilities)
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultStoreRadiusMeters
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 512
	}

	pts := make([][2]float64, len(facilities))
	m := &FacilityMatcher{
		facilities: facilities,
		byArea:     make(map[string]int),
		byDistrict: make(map[string]int),
		bySector:   make(map[string]int),
		opts:       opts,
		logger:     logger,
	}
	for i, f := range facilities {
		pts[i] = [2]float64{f.Latitude, f.Longitude}

		h := DecomposePostcode(f.Postcode)
		if h.Area.Code != "" {
			m.byArea[h.Area.Code]++
		}
		if h.District.Code != "" {
			m.byDistrict[h.District.Code]++
		}
		if h.Sector.Code != "" {
			m.bySector[h.Sector.Code]++
		}
	}
	m.tree = newKDTree(pts)
	m.radius = newRadiusIndex(facilities, opts.RadiusMeters)

	logger.Debug("[facilities] Indexed %d facilities (%d areas, %d districts, %d sectors, geohash chars %d)",
		len(facilities), len(m.byArea), len(m.byDistrict), len(m.bySector), m.radius.chars)
	return m, nil
}

// Match returns a copy of props with Proximity filled in. Properties are
// processed in row chunks on the worker pool; each chunk writes only its own
// rows, so the result does not depend on scheduling.
func (m *FacilityMatcher) Match(props []models.Property) ([]models.Property, error) {
	out := make([]models.Property, len(props))
	pool := utils.NewWorkerPool(m.opts.Workers)

	for _, span := range utils.Chunks(len(props), m.opts.ChunkSize) {
		span := span
		pool.Submit(func() error {
			for i := span.Start; i < span.End; i++ {
				p := props[i]
				p.Proximity = m.proximity(p)
				out[i] = p
			}
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *FacilityMatcher) proximity(p models.Property) models.Proximity {
	var px models.Proximity
	px.StoresInArea = densityFor(m.byArea, p.Postcode.Area.Code)
	px.StoresInDistrict = densityFor(m.byDistrict, p.Postcode.District.Code)
	px.StoresInSector = densityFor(m.bySector, p.Postcode.Sector.Code)

	lat, lon, ok := p.Sale.Coordinates()
	if !ok {
		return px
	}

	idx, d2 := m.tree.nearest([2]float64{lat, lon})
	nearest := m.facilities[idx]
	deg := math.Sqrt(d2)
	meters := HaversineMeters(lat, lon, nearest.Latitude, nearest.Longitude)
	inRadius := m.radius.count(lat, lon)

	px.DistanceDegrees = &deg
	px.DistanceMeters = &meters
	px.ClosestStore = nearest.Brand()
	px.StoresInRadius = &inRadius
	return px
}

func densityFor(counts map[string]int, code string) *int {
	if code == "" {
		return nil
	}
	n := counts[code]
	return &n
}
