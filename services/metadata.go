package services

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"property-pipeline/models"
)

const (
	sampleCount  = 2
	sampleMaxLen = 30
)

// Summarise builds one ColumnSummary per column of t. Declared types and
// provenance come from defs; columns without a definition get an inferred
// type and an empty source. The result depends only on t and defs.
func Summarise(t *models.Table, defs []models.ColumnDef) []models.ColumnSummary {
	byName := make(map[string]models.ColumnDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	out := make([]models.ColumnSummary, len(t.Columns))
	for col, name := range t.Columns {
		distinct := make(map[string]struct{})
		var samples []string
		nulls := 0

		for _, row := range t.Rows {
			v := ""
			if col < len(row) {
				v = row[col]
			}
			if v == "" {
				nulls++
				continue
			}
			if _, ok := distinct[v]; ok {
				continue
			}
			distinct[v] = struct{}{}
			if len(samples) < sampleCount {
				samples = append(samples, truncate(v, sampleMaxLen))
			}
		}

		s := models.ColumnSummary{
			Name:         name,
			Uniques:      len(distinct),
			Nulls:        nulls,
			SampleValues: samples,
		}
		if len(t.Rows) > 0 {
			s.NullProportion = float64(nulls) / float64(len(t.Rows))
		}
		if d, ok := byName[name]; ok {
			s.DataType, s.SourceFile = d.DataType, d.SourceFile
		} else {
			s.DataType = inferType(t, col)
		}
		out[col] = s
	}
	return out
}

// inferType reports int64, float64 or object for a column, looking only at
// non-null cells.
func inferType(t *models.Table, col int) string {
	kind := "int64"
	seen := false
	for _, row := range t.Rows {
		if col >= len(row) || row[col] == "" {
			continue
		}
		seen = true
		v := row[col]
		if kind == "int64" {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = "float64"
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "object"
		}
	}
	if !seen {
		return "object"
	}
	return kind
}

// SummaryTable lays out summaries as a metadata table.
func SummaryTable(summaries []models.ColumnSummary) *models.Table {
	t := &models.Table{
		Name:    "variable_info",
		Columns: []string{"variable_name", "data_type", "uniques", "nulls", "null_proportion", "sample_values", "source_file"},
		Rows:    make([][]string, 0, len(summaries)),
	}
	for _, s := range summaries {
		t.Rows = append(t.Rows, []string{
			s.Name,
			s.DataType,
			strconv.Itoa(s.Uniques),
			strconv.Itoa(s.Nulls),
			strconv.FormatFloat(s.NullProportion, 'f', 4, 64),
			strings.Join(s.SampleValues, "; "),
			s.SourceFile,
		})
	}
	return t
}

// Shape records the row and column counts of t.
func Shape(t *models.Table) models.FileShape {
	return models.FileShape{FileName: t.Name, Rows: len(t.Rows), Columns: len(t.Columns)}
}

// ShapeTable lays out shapes as a table.
func ShapeTable(shapes []models.FileShape) *models.Table {
	t := &models.Table{
		Name:    "property_data_shape",
		Columns: []string{"file_name", "rows", "columns"},
	}
	for _, s := range shapes {
		t.Rows = append(t.Rows, []string{s.FileName, strconv.Itoa(s.Rows), strconv.Itoa(s.Columns)})
	}
	return t
}

// truncate cuts s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
