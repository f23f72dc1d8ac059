package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"property-pipeline/models"
)

// CSVSource reads one delimited table from disk.
type CSVSource struct {
	path string
	name string
}

// NewCSVSource returns a source for the CSV file at path. The table is named
// after the file without its extension.
func NewCSVSource(path string) *CSVSource {
	base := filepath.Base(path)
	return &CSVSource{path: path, name: strings.TrimSuffix(base, filepath.Ext(base))}
}

func (c *CSVSource) Describe() string { return c.path }

func (c *CSVSource) Close() error { return nil }

// Load reads the header and every record. Short or long records are padded or
// cut to the header width.
func (c *CSVSource) Load(ctx context.Context) (*models.Table, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: %q has no header", c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", c.path, err)
	}

	t := &models.Table{Name: c.name, Columns: CleanColumns(header)}
	width := len(t.Columns)

	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %q line %d: %w", c.path, line, err)
		}

		row := make([]string, width)
		copy(row, record)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// CleanColumns lower-cases header names, replaces spaces with underscores and
// drops question marks.
func CleanColumns(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, " ", "_")
		out[i] = strings.ReplaceAll(h, "?", "")
	}
	return out
}
