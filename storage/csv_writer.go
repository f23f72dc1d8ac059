package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"property-pipeline/models"
)

// CSVWriter writes a table to a pending file beside path. Nothing is
// visible at path until Commit; Close without Commit discards the file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu        sync.Mutex
	path      string
	file      *renameio.PendingFile
	writer    *csv.Writer
	committed bool
	closed    bool
}

// NewCSVWriter creates the pending file for path. Intermediate directories
// are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(dir),
		renameio.WithPermissions(0644),
	)
	if err != nil {
		return nil, fmt.Errorf("csv: create pending file for %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Write writes the header and every row of t.
func (c *CSVWriter) Write(t *models.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := c.writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}

// Commit flushes the pending file and atomically replaces path with it.
func (c *CSVWriter) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("csv: commit %q: writer closed", c.path)
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", c.path, err)
	}
	if err := c.file.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("csv: replace %q: %w", c.path, err)
	}
	c.committed = true
	return nil
}

// Close discards the pending file unless Commit succeeded.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.committed {
		return nil
	}
	if err := c.file.Cleanup(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("csv: discard pending file: %w", err)
	}
	return nil
}

// Output pairs a table with its destination.
type Output struct {
	Path  string
	Table *models.Table
}

// WriteAll stages every output and renames them into place only once all of
// them have been written. On error no destination is touched, except when a
// rename itself fails part way.
func WriteAll(outputs ...Output) error {
	writers := make([]*CSVWriter, 0, len(outputs))
	defer func() {
		for _, w := range writers {
			_ = w.Close()
		}
	}()

	for _, o := range outputs {
		if o.Path == "" || o.Table == nil {
			continue
		}
		w, err := NewCSVWriter(o.Path)
		if err != nil {
			return err
		}
		writers = append(writers, w)
		if err := w.Write(o.Table); err != nil {
			return err
		}
	}

	for _, w := range writers {
		if err := w.Commit(); err != nil {
			return err
		}
	}
	return nil
}
