package models

// Table is a flat delimited table as read from or written to a source.
// An empty cell is a null.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex maps each column name to its position.
func (t *Table) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}
	return idx
}

// Missing returns the names in want that are not columns of t, in the order
// given.
func (t *Table) Missing(want []string) []string {
	idx := t.ColumnIndex()
	var missing []string
	for _, c := range want {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Row gives name-based access to one row of a Table.
type Row struct {
	index  map[string]int
	values []string
}

// RowViews returns name-addressable views over every row of t.
func (t *Table) RowViews() []Row {
	idx := t.ColumnIndex()
	views := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		views[i] = Row{index: idx, values: r}
	}
	return views
}

// Get returns the cell for column, or "" if the column is absent or the row
// is short.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// ColumnDef declares the type and provenance of an output column.
type ColumnDef struct {
	Name       string
	DataType   string
	SourceFile string
}
