package storage

import (
	"context"

	"property-pipeline/config"
	"property-pipeline/utils"
)

// OpenSource returns the backend described by sc.
func OpenSource(ctx context.Context, cfg *config.Config, sc config.SourceConfig, logger *utils.Logger) (TableSource, error) {
	if sc.FromPostgres() {
		return NewPostgresSource(ctx, cfg.SourceDSN(sc), sc.Table, sc.Columns, logger)
	}
	return NewCSVSource(sc.Path), nil
}
