package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"property-pipeline/models"
	"property-pipeline/utils"
)

// PostgresSource reads one input table from PostgreSQL. Every column is
// fetched as text so the rest of the pipeline sees the same cells a CSV
// export would carry; NULL becomes the empty string.
type PostgresSource struct {
	db      *sql.DB
	table   string
	columns []string
}

// NewPostgresSource opens a connection and waits for the server to answer.
// columns are selected in the order given.
func NewPostgresSource(ctx context.Context, dsn, table string, columns []string, logger *utils.Logger) (*PostgresSource, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("postgres: %s: no columns to select", table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &PostgresSource{db: db, table: table, columns: CleanColumns(columns)}, nil
}

func (ps *PostgresSource) Describe() string { return "postgres:" + ps.table }

// Load selects the configured columns from the whole table.
func (ps *PostgresSource) Load(ctx context.Context) (*models.Table, error) {
	rows, err := ps.db.QueryContext(ctx, selectQuery(ps.table, ps.columns))
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", ps.table, err)
	}
	defer rows.Close()

	t := &models.Table{Name: tableName(ps.table), Columns: ps.columns}

	cells := make([]sql.NullString, len(ps.columns))
	dest := make([]interface{}, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", ps.table, err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", ps.table, err)
	}
	return t, nil
}

func (ps *PostgresSource) Close() error {
	return ps.db.Close()
}

// selectQuery quotes every identifier; table may be schema-qualified.
func selectQuery(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}

	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}

	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), strings.Join(parts, "."))
}

func tableName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}
