package models

import "time"

// Location is one row of the postcode/location source.
type Location struct {
	Postcode   string
	InUse      bool
	Latitude   *float64
	Longitude  *float64
	Altitude   *float64
	Ward       string
	Parish     string
	Introduced string
	Terminated string
}

// RawTransaction holds an unprocessed price-paid row directly from the source.
// Line is the 1-based data row number, used in warnings.
type RawTransaction struct {
	Line                int
	RecordID            string
	Price               string
	Date                string
	Postcode            string
	PropertyType        string
	NewBuild            string
	EstateType          string
	SAON                string
	PAON                string
	Street              string
	Locality            string
	Town                string
	District            string
	County              string
	TransactionCategory string
}

// Transaction is a cleaned, typed price-paid record.
type Transaction struct {
	RecordID            string
	Price               *float64
	Date                time.Time
	Postcode            string
	PropertyType        string
	NewBuild            bool
	EstateType          string
	SAON                string
	PAON                string
	Street              string
	Locality            string
	Town                string
	District            string
	County              string
	TransactionCategory string
}

// Facility is a supermarket location.
type Facility struct {
	ID        string
	Retailer  string
	Fascia    string
	Postcode  string
	Latitude  float64
	Longitude float64
	County    string
}

// Brand is the fascia, or the retailer when no fascia was recorded.
func (f Facility) Brand() string {
	if f.Fascia != "" {
		return f.Fascia
	}
	return f.Retailer
}

// SaleRecord is a transaction left-joined onto its location. Location is nil
// when the postcode had no location match.
type SaleRecord struct {
	PropertyID string
	Transaction
	Location *Location
}

// Coordinates returns the record's latitude and longitude when both are known.
func (s SaleRecord) Coordinates() (lat, lon float64, ok bool) {
	if s.Location == nil || s.Location.Latitude == nil || s.Location.Longitude == nil {
		return 0, 0, false
	}
	return *s.Location.Latitude, *s.Location.Longitude, true
}

// BuildingType is the rule-derived category of a property.
type BuildingType string

const (
	BuildingFarm     BuildingType = "Farm"
	BuildingLandOnly BuildingType = "Land only"
	BuildingBungalow BuildingType = "Bungalow"
	BuildingHotel    BuildingType = "Hotel"
	BuildingPub      BuildingType = "Pub"
	BuildingFlat     BuildingType = "Flat"
	BuildingHouse    BuildingType = "House"
)

// PostcodeLevel is one granularity of a postcode with its group centroid.
// Latitude and Longitude are nil when Code is empty or no member of the
// group has coordinates.
type PostcodeLevel struct {
	Code      string
	Latitude  *float64
	Longitude *float64
}

// PostcodeHierarchy holds the three derived postcode granularities.
type PostcodeHierarchy struct {
	Area     PostcodeLevel
	District PostcodeLevel
	Sector   PostcodeLevel
}

// Proximity holds the facility-derived fields of a property. Pointer fields
// are nil when the value could not be computed.
type Proximity struct {
	DistanceDegrees  *float64
	DistanceMeters   *float64
	ClosestStore     string
	StoresInRadius   *int
	StoresInArea     *int
	StoresInDistrict *int
	StoresInSector   *int
}

// Property is one distinct physical property.
type Property struct {
	PropertyID   string
	Sale         SaleRecord
	SaleCount    int
	Postcode     PostcodeHierarchy
	BuildingType BuildingType
	Proximity    Proximity
}

// PricePoint is one observed (identity, date, price) triple.
type PricePoint struct {
	PropertyID string
	Date       time.Time
	Price      *float64
}

// YearPrice is one row of a yearly price series.
type YearPrice struct {
	PropertyID        string
	Year              int
	InterpolatedPrice float64
}

// PropertyYear is one row of the final table.
type PropertyYear struct {
	Property          *Property
	Year              int
	InterpolatedPrice float64
	TruePrice         bool
}
