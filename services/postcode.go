package services

import (
	"strings"
	"unicode"

	"property-pipeline/models"
)

// NormalisePostcode upper-cases a postcode and collapses internal whitespace
// to single spaces.
func NormalisePostcode(pc string) string {
	return strings.Join(strings.Fields(strings.ToUpper(pc)), " ")
}

// DecomposePostcode derives area, district and sector codes from a postcode.
// Postcodes shorter than 3 characters yield no codes; a postcode with no digit
// yields no area.
//
//	"CF14 9AB" → area "CF", district "CF14", sector "CF14 9"
func DecomposePostcode(pc string) models.PostcodeHierarchy {
	pc = NormalisePostcode(pc)
	var h models.PostcodeHierarchy
	if len(pc) < 3 {
		return h
	}

	h.Area.Code = postcodeArea(pc)
	h.District.Code, _, _ = strings.Cut(pc, " ")
	h.Sector.Code = strings.TrimSpace(pc[:len(pc)-2])
	return h
}

func postcodeArea(pc string) string {
	firstDigit := strings.IndexFunc(pc, unicode.IsDigit)
	if firstDigit < 0 {
		return ""
	}
	lead := pc[:firstDigit]
	end := strings.IndexFunc(lead, func(r rune) bool { return !unicode.IsLetter(r) })
	if end >= 0 {
		lead = lead[:end]
	}
	return lead
}

type centroid struct {
	lat, lon float64
	n        int
}

func (c centroid) mean() (lat, lon *float64) {
	la, lo := c.lat/float64(c.n), c.lon/float64(c.n)
	return &la, &lo
}

// ApplyCentroids returns a copy of props with every postcode level's centroid
// set to the mean coordinates of the properties sharing that code. Each level
// is aggregated independently; properties with an empty code or without
// coordinates do not contribute to that level.
func ApplyCentroids(props []models.Property) []models.Property {
	area := make(map[string]*centroid)
	district := make(map[string]*centroid)
	sector := make(map[string]*centroid)

	for _, p := range props {
		lat, lon, ok := p.Sale.Coordinates()
		if !ok {
			continue
		}
		accumulate(area, p.Postcode.Area.Code, lat, lon)
		accumulate(district, p.Postcode.District.Code, lat, lon)
		accumulate(sector, p.Postcode.Sector.Code, lat, lon)
	}

	out := make([]models.Property, len(props))
	for i, p := range props {
		p.Postcode.Area = withCentroid(area, p.Postcode.Area.Code)
		p.Postcode.District = withCentroid(district, p.Postcode.District.Code)
		p.Postcode.Sector = withCentroid(sector, p.Postcode.Sector.Code)
		out[i] = p
	}
	return out
}

func accumulate(groups map[string]*centroid, code string, lat, lon float64) {
	if code == "" {
		return
	}
	c, ok := groups[code]
	if !ok {
		c = &centroid{}
		groups[code] = c
	}
	c.lat += lat
	c.lon += lon
	c.n++
}

func withCentroid(groups map[string]*centroid, code string) models.PostcodeLevel {
	level := models.PostcodeLevel{Code: code}
	if c, ok := groups[code]; ok && code != "" {
		level.Latitude, level.Longitude = c.mean()
	}
	return level
}
