package storage

import (
	"context"

	"property-pipeline/models"
)

// TableSource is the interface any input backend must satisfy.
type TableSource interface {
	// Load reads the whole table. Column names are cleaned the same way for
	// every backend.
	Load(ctx context.Context) (*models.Table, error)
	// Describe names the source for logs and reports.
	Describe() string
	Close() error
}

var (
	_ TableSource = (*CSVSource)(nil)
	_ TableSource = (*PostgresSource)(nil)
)
