package kvstore

import (
	"context"

	"learnverse/internal/config"
	"learnverse/internal/database"
	"learnverse/internal/observability"
)

// Open builds the backend selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig, logger *observability.Logger, metrics *observability.ProgressMetrics) (Backend, error) {
	if cfg.Driver == "" || cfg.Driver == config.DriverMemory {
		logger.Info(ctx, "Using in-memory key-value store")
		return NewMemoryBackend(logger, metrics), nil
	}

	db, dialect, err := database.NewManager(logger).Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLBackend(db, dialect, logger, metrics), nil
}
