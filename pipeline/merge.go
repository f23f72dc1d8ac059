package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"property-pipeline/models"
	"property-pipeline/services"
)

// checkCardinality fails when a join produced more rows than its input
// allows for.
func checkCardinality(what string, in, out int, tolerance float64) error {
	limit := float64(in) * (1 + tolerance)
	if float64(out) > limit {
		return fmt.Errorf("%w: %s produced %d rows from %d (tolerance %.2f)",
			services.ErrJoinCardinality, what, out, in, tolerance)
	}
	return nil
}

// mergeBase left-joins transactions onto locations by postcode. Transactions
// with no matching location are kept with a nil Location. The second return
// value lists the transactions that found no match, in input order.
func mergeBase(txs []models.Transaction, locs []models.Location, tolerance float64) ([]models.SaleRecord, []int, error) {
	byPostcode := make(map[string][]int, len(locs))
	for i, l := range locs {
		if l.Postcode == "" {
			continue
		}
		byPostcode[l.Postcode] = append(byPostcode[l.Postcode], i)
	}

	out := make([]models.SaleRecord, 0, len(txs))
	var unmatched []int
	for i, tx := range txs {
		matches := byPostcode[tx.Postcode]
		if len(matches) == 0 {
			unmatched = append(unmatched, i)
			out = append(out, models.SaleRecord{Transaction: tx})
			continue
		}
		for _, li := range matches {
			out = append(out, models.SaleRecord{Transaction: tx, Location: &locs[li]})
		}
	}

	if err := checkCardinality("location merge", len(txs), len(out), tolerance); err != nil {
		return nil, nil, err
	}
	return out, unmatched, nil
}

// latestSales reduces identified records to one Property per identity,
// keeping the sale with the latest deed date. Equal dates keep the later
// record. SaleCount counts distinct transactions, so a sale joined onto
// several locations counts once. The result is ordered by identity.
func latestSales(records []models.SaleRecord) []models.Property {
	byID := make(map[string]int)
	var props []models.Property
	var sales []map[string]struct{}

	for _, r := range records {
		i, ok := byID[r.PropertyID]
		if !ok {
			i = len(props)
			byID[r.PropertyID] = i
			props = append(props, models.Property{PropertyID: r.PropertyID, Sale: r})
			sales = append(sales, make(map[string]struct{}))
		} else if !r.Date.Before(props[i].Sale.Date) {
			props[i].Sale = r
		}
		sales[i][saleKey(r)] = struct{}{}
	}

	for i := range props {
		props[i].SaleCount = len(sales[i])
	}
	sort.Slice(props, func(a, b int) bool { return props[a].PropertyID < props[b].PropertyID })
	return props
}

// saleKey identifies the transaction behind a record. Records without an id
// fall back to their date and price.
func saleKey(r models.SaleRecord) string {
	if r.RecordID != "" {
		return r.RecordID
	}
	price := ""
	if r.Price != nil {
		price = strconv.FormatFloat(*r.Price, 'f', -1, 64)
	}
	return "\x00" + r.Date.Format("2006-01-02") + "|" + price
}

// describeProperties derives the postcode hierarchy, centroids and building
// type of every property.
func describeProperties(props []models.Property, classifier *services.Classifier) []models.Property {
	out := make([]models.Property, len(props))
	for i, p := range props {
		p.Postcode = services.DecomposePostcode(p.Sale.Postcode)
		p.BuildingType = classifier.Classify(p.Sale.PAON, p.Sale.SAON)
		out[i] = p
	}
	return services.ApplyCentroids(out)
}

// pricePoints lists the (identity, date, price) observations of records.
func pricePoints(records []models.SaleRecord) []models.PricePoint {
	out := make([]models.PricePoint, len(records))
	for i, r := range records {
		out[i] = models.PricePoint{PropertyID: r.PropertyID, Date: r.Date, Price: r.Price}
	}
	return out
}

// mergeSeries joins every yearly price onto its property. true_price is set
// exactly on years that had an observed sale. A series longer than the
// observed spans allow for fails with ErrJoinCardinality.
func mergeSeries(props []models.Property, series []models.YearPrice, observed map[string]map[int]bool, tolerance float64) ([]models.PropertyYear, error) {
	byID := make(map[string]*models.Property, len(props))
	for i := range props {
		byID[props[i].PropertyID] = &props[i]
	}

	out := make([]models.PropertyYear, 0, len(series))
	for _, yp := range series {
		p, ok := byID[yp.PropertyID]
		if !ok {
			return nil, fmt.Errorf("%w: price series for unknown property %s", services.ErrInput, yp.PropertyID)
		}
		out = append(out, models.PropertyYear{
			Property:          p,
			Year:              yp.Year,
			InterpolatedPrice: yp.InterpolatedPrice,
			TruePrice:         observed[yp.PropertyID][yp.Year],
		})
	}

	if err := checkCardinality("series merge", spanYears(observed), len(out), tolerance); err != nil {
		return nil, err
	}
	return out, nil
}

// spanYears is the number of rows a series covering each identity's first to
// last observed year holds.
func spanYears(observed map[string]map[int]bool) int {
	total := 0
	for _, years := range observed {
		first, last, seen := 0, 0, false
		for y := range years {
			if !seen || y < first {
				first = y
			}
			if !seen || y > last {
				last = y
			}
			seen = true
		}
		if seen {
			total += last - first + 1
		}
	}
	return total
}

// rejoin points every row at the matched copy of its property.
func rejoin(rows []models.PropertyYear, matched []models.Property) []models.PropertyYear {
	byID := make(map[string]*models.Property, len(matched))
	for i := range matched {
		byID[matched[i].PropertyID] = &matched[i]
	}

	out := make([]models.PropertyYear, len(rows))
	for i, r := range rows {
		if p, ok := byID[r.Property.PropertyID]; ok {
			r.Property = p
		}
		out[i] = r
	}
	return out
}

// sortRows orders rows by identity, then year.
func sortRows(rows []models.PropertyYear) {
	sort.SliceStable(rows, func(a, b int) bool {
		ia, ib := rows[a].Property.PropertyID, rows[b].Property.PropertyID
		if ia != ib {
			return ia < ib
		}
		return rows[a].Year < rows[b].Year
	})
}
