package pipeline

import (
	"strconv"

	"property-pipeline/models"
)

const sourceEngineered = "engineered"

// sourceNames records which table each input came from, for provenance in
// the metadata summary.
type sourceNames struct {
	Locations  string
	Prices     string
	Facilities string
}

type outputColumn struct {
	def   models.ColumnDef
	value func(r models.PropertyYear) string
}

// outputSchema is the fixed layout of the final table.
func outputSchema(src sourceNames) []outputColumn {
	col := func(name, dtype, source string, value func(r models.PropertyYear) string) outputColumn {
		return outputColumn{def: models.ColumnDef{Name: name, DataType: dtype, SourceFile: source}, value: value}
	}
	sale := func(r models.PropertyYear) models.SaleRecord { return r.Property.Sale }
	loc := func(r models.PropertyYear) *models.Location { return r.Property.Sale.Location }
	pc := func(r models.PropertyYear) models.PostcodeHierarchy { return r.Property.Postcode }
	px := func(r models.PropertyYear) models.Proximity { return r.Property.Proximity }

	return []outputColumn{
		col("property_id", "object", sourceEngineered, func(r models.PropertyYear) string { return r.Property.PropertyID }),
		col("year", "int64", sourceEngineered, func(r models.PropertyYear) string { return strconv.Itoa(r.Year) }),
		col("postcode", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).Postcode }),

		col("postcode_area", "object", sourceEngineered, func(r models.PropertyYear) string { return pc(r).Area.Code }),
		col("postcode_area_latitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).Area.Latitude) }),
		col("postcode_area_longitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).Area.Longitude) }),
		col("postcode_district", "object", sourceEngineered, func(r models.PropertyYear) string { return pc(r).District.Code }),
		col("postcode_district_latitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).District.Latitude) }),
		col("postcode_district_longitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).District.Longitude) }),
		col("postcode_sector", "object", sourceEngineered, func(r models.PropertyYear) string { return pc(r).Sector.Code }),
		col("postcode_sector_latitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).Sector.Latitude) }),
		col("postcode_sector_longitude", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(pc(r).Sector.Longitude) }),

		col("latitude", "float64", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return formatFloat(l.Latitude)
			}
			return ""
		}),
		col("longitude", "float64", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return formatFloat(l.Longitude)
			}
			return ""
		}),
		col("altitude", "float64", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return formatFloat(l.Altitude)
			}
			return ""
		}),
		col("ward", "object", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return l.Ward
			}
			return ""
		}),
		col("parish", "object", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return l.Parish
			}
			return ""
		}),
		col("in_use", "int64", src.Locations, func(r models.PropertyYear) string {
			if l := loc(r); l != nil {
				return formatFlag(l.InUse)
			}
			return ""
		}),

		col("has_price_data", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatFlag(sale(r).Price != nil) }),
		col("price_paid", "float64", src.Prices, func(r models.PropertyYear) string { return formatFloat(sale(r).Price) }),
		col("deed_date", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).Date.Format("2006-01-02") }),
		col("sale_count", "int64", sourceEngineered, func(r models.PropertyYear) string { return strconv.Itoa(r.Property.SaleCount) }),
		col("new_build", "int64", src.Prices, func(r models.PropertyYear) string { return formatFlag(sale(r).NewBuild) }),
		col("building_type", "object", sourceEngineered, func(r models.PropertyYear) string { return string(r.Property.BuildingType) }),
		col("property_type", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).PropertyType }),
		col("estate_type", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).EstateType }),
		col("saon", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).SAON }),
		col("paon", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).PAON }),
		col("street", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).Street }),
		col("locality", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).Locality }),
		col("town", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).Town }),
		col("district", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).District }),
		col("county", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).County }),
		col("transaction_category", "object", src.Prices, func(r models.PropertyYear) string { return sale(r).TransactionCategory }),

		col("distance_to_closest_supermarket", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(px(r).DistanceDegrees) }),
		col("distance_to_closest_supermarket_m", "float64", sourceEngineered, func(r models.PropertyYear) string { return formatFloat(px(r).DistanceMeters) }),
		col("closest_store", "object", src.Facilities, func(r models.PropertyYear) string { return px(r).ClosestStore }),
		col("number_stores_in_radius", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatInt(px(r).StoresInRadius) }),
		col("supermarkets_in_area", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatInt(px(r).StoresInArea) }),
		col("supermarkets_in_district", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatInt(px(r).StoresInDistrict) }),
		col("supermarkets_in_sector", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatInt(px(r).StoresInSector) }),

		col("interpolated_price", "float64", sourceEngineered, func(r models.PropertyYear) string {
			return strconv.FormatFloat(r.InterpolatedPrice, 'f', -1, 64)
		}),
		col("true_price", "int64", sourceEngineered, func(r models.PropertyYear) string { return formatFlag(r.TruePrice) }),
	}
}

// encodeRows lays rows out under schema. rows must already be in output
// order.
func encodeRows(name string, schema []outputColumn, rows []models.PropertyYear) (*models.Table, []models.ColumnDef) {
	t := &models.Table{Name: name, Columns: make([]string, len(schema)), Rows: make([][]string, len(rows))}
	defs := make([]models.ColumnDef, len(schema))
	for i, c := range schema {
		t.Columns[i] = c.def.Name
		defs[i] = c.def
	}

	for i, r := range rows {
		row := make([]string, len(schema))
		for j, c := range schema {
			row[j] = c.value(r)
		}
		t.Rows[i] = row
	}
	return t, defs
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
