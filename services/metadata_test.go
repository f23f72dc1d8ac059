package services

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/models"
)

func sampleTable() *models.Table {
	return &models.Table{
		Name:    "monmouthshire_properties",
		Columns: []string{"property_id", "year", "interpolated_price", "closest_store", "notes"},
		Rows: [][]string{
			{"a", "2001", "100000", "Tesco", ""},
			{"a", "2002", "120000.5", "Tesco", "a very long free text note that overflows"},
			{"b", "2001", "90000", "", ""},
			{"c", "2003", "", "Aldi", "short"},
		},
	}
}

func TestSummarise(t *testing.T) {
	defs := []models.ColumnDef{
		{Name: "property_id", DataType: "object", SourceFile: "engineered"},
		{Name: "year", DataType: "int64", SourceFile: "monmouthshire_prices"},
	}

	got := Summarise(sampleTable(), defs)
	require.Len(t, got, 5)

	id := got[0]
	assert.Equal(t, "property_id", id.Name)
	assert.Equal(t, "object", id.DataType)
	assert.Equal(t, "engineered", id.SourceFile)
	assert.Equal(t, 3, id.Uniques)
	assert.Equal(t, 0, id.Nulls)
	assert.Equal(t, []string{"a", "b"}, id.SampleValues)

	price := got[2]
	assert.Equal(t, "float64", price.DataType, "inferred")
	assert.Equal(t, 1, price.Nulls)
	assert.InDelta(t, 0.25, price.NullProportion, 1e-9)
	assert.Empty(t, price.SourceFile)

	store := got[3]
	assert.Equal(t, 2, store.Uniques)
	assert.Equal(t, []string{"Tesco", "Aldi"}, store.SampleValues)

	notes := got[4]
	assert.Equal(t, "object", notes.DataType)
	assert.Equal(t, "a very long free text note ...", notes.SampleValues[0])
	assert.Len(t, notes.SampleValues[0], sampleMaxLen)
}

func TestSummariseKeepsMultiByteSamplesValid(t *testing.T) {
	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZŴŴŴŴŴŴŴŴ"
	tbl := &models.Table{
		Columns: []string{"street"},
		Rows:    [][]string{{long}, {"FFORDD Ŵ"}},
	}

	got := Summarise(tbl, nil)
	require.Len(t, got, 1)
	require.Len(t, got[0].SampleValues, 2)

	sample := got[0].SampleValues[0]
	assert.True(t, utf8.ValidString(sample), "sample %q", sample)
	assert.Equal(t, sampleMaxLen, utf8.RuneCountInString(sample))
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZŴ...", sample)
	assert.Equal(t, "FFORDD Ŵ", got[0].SampleValues[1])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"ŴŴŴŴŴŴŴŴŴŴ", 10, "ŴŴŴŴŴŴŴŴŴŴ"},
		{"ŴŴŴŴŴŴŴŴŴŴŴ", 10, "ŴŴŴŴŴŴŴ..."},
		{"abcdefghijklmnop", 10, "abcdefg..."},
	}

	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.max)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestSummariseIsPureFunctionOfTable(t *testing.T) {
	tbl := sampleTable()
	before := Summarise(tbl, nil)

	tbl.Rows = append(tbl.Rows, []string{"d", "2004", "1", "Lidl", ""})
	after := Summarise(tbl, nil)

	assert.Equal(t, Summarise(sampleTable(), nil), before)
	assert.NotEqual(t, before, after)
	assert.Equal(t, 4, after[0].Uniques)
}

func TestInferType(t *testing.T) {
	tbl := &models.Table{
		Columns: []string{"i", "f", "s", "empty"},
		Rows: [][]string{
			{"1", "1", "x", ""},
			{"2", "2.5", "1", ""},
		},
	}
	assert.Equal(t, "int64", inferType(tbl, 0))
	assert.Equal(t, "float64", inferType(tbl, 1))
	assert.Equal(t, "object", inferType(tbl, 2))
	assert.Equal(t, "object", inferType(tbl, 3))
}

func TestSummaryAndShapeTables(t *testing.T) {
	tbl := sampleTable()
	sum := SummaryTable(Summarise(tbl, nil))
	require.Len(t, sum.Rows, 5)
	assert.Equal(t, []string{"year", "int64", "3", "0", "0.0000", "2001; 2002", ""}, sum.Rows[1])

	shape := ShapeTable([]models.FileShape{Shape(tbl)})
	assert.Equal(t, [][]string{{"monmouthshire_properties", "4", "5"}}, shape.Rows)
}
