package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"property-pipeline/models"
	"property-pipeline/utils"
)

// Warning categories reported in the run summary.
const (
	WarnMalformedDate     = "malformed_date"
	WarnUnparsablePrice   = "unparsable_price"
	WarnNoIdentity        = "no_identity_fields"
	WarnDuplicateRecord   = "duplicate_record"
	WarnBadCoordinates    = "bad_coordinates"
	WarnFacilityNoCoords  = "facility_without_coordinates"
	WarnUnmatchedPostcode = "unmatched_postcode"
)

var (
	// priceStripper drops currency symbols and thousands separators
	priceStripper = strings.NewReplacer("£", "", ",", "")

	dateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"02/01/2006",
	}
)

// Cleaner turns raw source tables into typed records. Rows that cannot be
// used are dropped and counted as warnings, or rejected with ErrInput when
// strict is set.
type Cleaner struct {
	logger   *utils.Logger
	strict   bool
	warnings map[string]int
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger, strict bool) *Cleaner {
	return &Cleaner{logger: logger, strict: strict, warnings: make(map[string]int)}
}

// Warnings returns a copy of the per-category warning counts so far.
func (c *Cleaner) Warnings() map[string]int {
	out := make(map[string]int, len(c.warnings))
	for k, v := range c.warnings {
		out[k] = v
	}
	return out
}

// Warn records one warning. Non-cleaner stages use it to report through the
// same counters.
func (c *Cleaner) Warn(category, format string, args ...any) {
	c.warnings[category]++
	c.logger.Warn("[cleaner] "+category+": "+format, args...)
}

func (c *Cleaner) reject(category, format string, args ...any) error {
	if c.strict {
		return fmt.Errorf("%w: %s: %s", ErrInput, category, fmt.Sprintf(format, args...))
	}
	c.Warn(category, format, args...)
	return nil
}

// RawTransactions maps the price-paid table onto RawTransaction rows.
func RawTransactions(t *models.Table) []*models.RawTransaction {
	views := t.RowViews()
	out := make([]*models.RawTransaction, len(views))
	for i, r := range views {
		out[i] = &models.RawTransaction{
			Line:                i + 1,
			RecordID:            r.Get("unique_id"),
			Price:               r.Get("price_paid"),
			Date:                r.Get("deed_date"),
			Postcode:            r.Get("postcode"),
			PropertyType:        r.Get("property_type"),
			NewBuild:            r.Get("new_build"),
			EstateType:          r.Get("estate_type"),
			SAON:                r.Get("saon"),
			PAON:                r.Get("paon"),
			Street:              r.Get("street"),
			Locality:            r.Get("locality"),
			Town:                r.Get("town"),
			District:            r.Get("district"),
			County:              r.Get("county"),
			TransactionCategory: r.Get("transaction_category"),
		}
	}
	return out
}

// CleanTransactions parses raw price-paid rows. Duplicate record ids keep the
// first occurrence.
func (c *Cleaner) CleanTransactions(raw []*models.RawTransaction) ([]models.Transaction, error) {
	seen := utils.NewKeySet()
	result := make([]models.Transaction, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.RecordID)
		if id != "" && !seen.Add(id) {
			c.Warn(WarnDuplicateRecord, "row %d repeats record %s", r.Line, id)
			continue
		}

		date, err := parseDate(r.Date)
		if err != nil {
			if rerr := c.reject(WarnMalformedDate, "row %d: %q", r.Line, r.Date); rerr != nil {
				return nil, rerr
			}
			continue
		}

		price, ok := parsePrice(r.Price)
		if !ok {
			if rerr := c.reject(WarnUnparsablePrice, "row %d: %q", r.Line, r.Price); rerr != nil {
				return nil, rerr
			}
			continue
		}

		tx := models.Transaction{
			RecordID:            id,
			Price:               &price,
			Date:                date,
			Postcode:            NormalisePostcode(r.Postcode),
			PropertyType:        normaliseText(r.PropertyType),
			NewBuild:            parseFlag(r.NewBuild),
			EstateType:          normaliseText(r.EstateType),
			SAON:                normaliseText(r.SAON),
			PAON:                normaliseText(r.PAON),
			Street:              normaliseText(r.Street),
			Locality:            normaliseText(r.Locality),
			Town:                normaliseText(r.Town),
			District:            normaliseText(r.District),
			County:              normaliseText(r.County),
			TransactionCategory: normaliseText(r.TransactionCategory),
		}
		if tx.Postcode == "" && tx.PAON == "" && tx.Street == "" {
			if rerr := c.reject(WarnNoIdentity, "row %d has no postcode, house or street", r.Line); rerr != nil {
				return nil, rerr
			}
			continue
		}

		result = append(result, tx)
	}

	c.logger.Info("[cleaner] Cleaned transactions %d → %d (dropped %d, distinct record ids %d)",
		len(raw), len(result), len(raw)-len(result), seen.Size())
	return result, nil
}

// CleanLocations parses the postcode/location table. Unparsable coordinates
// become nulls.
func (c *Cleaner) CleanLocations(t *models.Table) []models.Location {
	views := t.RowViews()
	out := make([]models.Location, 0, len(views))
	for i, r := range views {
		loc := models.Location{
			Postcode:   NormalisePostcode(r.Get("postcode")),
			InUse:      parseFlag(r.Get("in_use")),
			Altitude:   parseOptionalFloat(r.Get("altitude")),
			Ward:       normaliseText(r.Get("ward")),
			Parish:     normaliseText(r.Get("parish")),
			Introduced: normaliseText(r.Get("introduced")),
			Terminated: normaliseText(r.Get("terminated")),
		}
		lat, lon := parseOptionalFloat(r.Get("latitude")), parseOptionalFloat(r.Get("longitude"))
		if (lat == nil) != (lon == nil) || (lat != nil && !validCoordinates(*lat, *lon)) {
			c.Warn(WarnBadCoordinates, "location row %d (%s): %q, %q",
				i+1, loc.Postcode, r.Get("latitude"), r.Get("longitude"))
			lat, lon = nil, nil
		}
		loc.Latitude, loc.Longitude = lat, lon
		out = append(out, loc)
	}
	return out
}

// CleanFacilities parses the supermarket table. Facilities without usable
// coordinates are dropped.
func (c *Cleaner) CleanFacilities(t *models.Table) []models.Facility {
	views := t.RowViews()
	out := make([]models.Facility, 0, len(views))
	for i, r := range views {
		lat, lon := parseOptionalFloat(r.Get("lat_wgs")), parseOptionalFloat(r.Get("long_wgs"))
		if lat == nil || lon == nil || !validCoordinates(*lat, *lon) {
			c.Warn(WarnFacilityNoCoords, "facility row %d (%s)", i+1, r.Get("id"))
			continue
		}
		out = append(out, models.Facility{
			ID:        strings.TrimSpace(r.Get("id")),
			Retailer:  normaliseText(r.Get("retailer")),
			Fascia:    normaliseText(r.Get("fascia")),
			Postcode:  NormalisePostcode(r.Get("postcode")),
			Latitude:  *lat,
			Longitude: *lon,
			County:    normaliseText(r.Get("county")),
		})
	}
	return out
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// parsePrice reads the whole field as a number once currency symbols and
// thousands separators are removed. Negative and non-finite values fail.
//
//	"250000" → 250000
//	"£1,200.50" → 1200.5
//	"approx 12 units" → false
func parsePrice(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(priceStripper.Replace(raw))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func parseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// parseFlag reads Y/N, Yes/No, true/false and 1/0 flags.
func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1", "t":
		return true
	}
	return false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
