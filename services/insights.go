package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"property-pipeline/models"
	"property-pipeline/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate fills the row-derived statistics of report from the final rows.
// Source counts, warnings and run identity are left as the caller set them.
func (s *InsightService) Generate(report *models.RunReport, rows []models.PropertyYear) *models.RunReport {
	report.ByBuildingType = make(map[models.BuildingType]int)
	report.ClosestStoreCounts = make(map[string]int)
	report.OutputRows = len(rows)

	if len(rows) == 0 {
		return report
	}

	seen := make(map[string]struct{})
	var total float64
	report.MinPrice = math.Inf(1)
	report.MaxPrice = math.Inf(-1)
	report.FirstYear, report.LastYear = rows[0].Year, rows[0].Year

	for _, r := range rows {
		if r.TruePrice {
			report.ObservedYears++
		} else {
			report.InterpolatedYears++
		}
		total += r.InterpolatedPrice
		report.MinPrice = math.Min(report.MinPrice, r.InterpolatedPrice)
		report.MaxPrice = math.Max(report.MaxPrice, r.InterpolatedPrice)
		if r.Year < report.FirstYear {
			report.FirstYear = r.Year
		}
		if r.Year > report.LastYear {
			report.LastYear = r.Year
		}

		if _, dup := seen[r.Property.PropertyID]; dup {
			continue
		}
		seen[r.Property.PropertyID] = struct{}{}
		report.ByBuildingType[r.Property.BuildingType]++
		if store := r.Property.Proximity.ClosestStore; store != "" {
			report.ClosestStoreCounts[store]++
		}
	}

	report.Properties = len(seen)
	report.AveragePrice = round2(total / float64(len(rows)))
	report.MinPrice = round2(report.MinPrice)
	report.MaxPrice = round2(report.MaxPrice)

	s.logger.Debug("[insights] %d properties over %d–%d", report.Properties, report.FirstYear, report.LastYear)
	return report
}

// Print writes a human-readable report to w.
func (s *InsightService) Print(w io.Writer, r *models.RunReport) {
	title := color.New(color.FgMagenta, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	value := color.New(color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgRed, color.Bold)

	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", title.Sprint(sep))
	fmt.Fprintf(w, "%s\n", title.Sprint("  PROPERTY PIPELINE RUN ", r.RunID))
	fmt.Fprintf(w, "%s\n\n", title.Sprint(sep))

	fmt.Fprintf(w, "%s\n", heading.Sprint("  Inputs"))
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Location rows      : %s\n", value.Sprint(r.Locations))
	fmt.Fprintf(w, "  Transactions       : %s\n", value.Sprint(r.Transactions))
	fmt.Fprintf(w, "  Facilities         : %s\n", value.Sprint(r.Facilities))
	fmt.Fprintf(w, "  Unmatched postcodes: %s\n\n", value.Sprint(r.UnmatchedPostcodes))

	fmt.Fprintf(w, "%s\n", heading.Sprint("  Output"))
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Properties         : %s\n", value.Sprint(r.Properties))
	fmt.Fprintf(w, "  Property-years     : %s (%d observed, %d interpolated)\n",
		value.Sprint(r.OutputRows), r.ObservedYears, r.InterpolatedYears)
	if r.OutputRows > 0 {
		fmt.Fprintf(w, "  Years              : %d–%d\n", r.FirstYear, r.LastYear)
		fmt.Fprintf(w, "  Average price      : %s\n", good.Sprintf("£%.2f", r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price      : %s\n", good.Sprintf("£%.2f", r.MinPrice))
		fmt.Fprintf(w, "  Maximum price      : %s\n", good.Sprintf("£%.2f", r.MaxPrice))
	}
	fmt.Fprintf(w, "  Written to         : %s\n\n", r.OutputPath)

	fmt.Fprintf(w, "%s\n", heading.Sprint("  Properties by Building Type"))
	fmt.Fprintf(w, "  %s\n", thin)
	for _, kc := range sortedCounts(buildingCounts(r.ByBuildingType)) {
		fmt.Fprintf(w, "  %-20s %s (%d)\n", kc.key, strings.Repeat("█", barLength(kc.count, r.Properties)), kc.count)
	}
	fmt.Fprintln(w)

	if len(r.ClosestStoreCounts) > 0 {
		fmt.Fprintf(w, "%s\n", heading.Sprint("  Closest Store"))
		fmt.Fprintf(w, "  %s\n", thin)
		for _, kc := range sortedCounts(r.ClosestStoreCounts) {
			fmt.Fprintf(w, "  %-28s %d\n", truncate(kc.key, 28), kc.count)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\n", heading.Sprint("  Warnings"))
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalWarnings() == 0 {
		fmt.Fprintf(w, "  %s\n", good.Sprint("none"))
	} else {
		for _, kc := range sortedCounts(r.Warnings) {
			fmt.Fprintf(w, "  %-28s %s\n", kc.key, warn.Sprint(kc.count))
		}
	}

	fmt.Fprintf(w, "\n%s\n", title.Sprint(sep))
	fmt.Fprintf(w, "  Started %s, finished in %s\n\n",
		r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func buildingCounts(m map[models.BuildingType]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// barLength scales count to a bar of at most 30 blocks.
func barLength(count, total int) int {
	if total == 0 {
		return 0
	}
	n := count * 30 / total
	if n == 0 && count > 0 {
		n = 1
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
