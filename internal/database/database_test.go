package database

import (
	"context"
	"path/filepath"
	"testing"

	"learnverse/internal/config"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager() *Manager {
	return NewManager(observability.NewLoggerFromZap(zap.NewNop()))
}

func sqliteConfig(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "learnverse.db"),
		AutoMigrate: true,
	}
}

func TestManager_OpenSQLiteRunsMigrations(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager()
	cfg := sqliteConfig(t)

	db, dialect, err := dm.Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, dialect.Name())

	_, err = db.ExecContext(ctx, dialect.EnsureNamespaceQuery(), "p1", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, dialect.UpsertEntryQuery(), "p1", "completedModules", `["math-1"]`, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, dialect.UpsertEntryQuery(), "p1", "completedModules", `["math-1","math-2"]`, "2024-01-02T00:00:00Z")
	require.NoError(t, err)

	var value string
	err = db.QueryRowContext(ctx, "SELECT entry_value FROM kv_entries WHERE namespace = ? AND entry_key = ?", "p1", "completedModules").Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, `["math-1","math-2"]`, value)
}

func TestManager_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager()
	cfg := sqliteConfig(t)

	require.NoError(t, dm.Migrate(ctx, cfg))
	require.NoError(t, dm.Migrate(ctx, cfg))

	status, err := dm.Status(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.Equal(t, uint(2), status.Latest)
	assert.False(t, status.Dirty)
}

func TestManager_ResetDropsData(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager()
	cfg := sqliteConfig(t)

	db, dialect, err := dm.Open(ctx, cfg)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, dialect.UpsertEntryQuery(), "p1", "badges", `["science_beginner"]`, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, dm.Reset(ctx, cfg))

	db, _, err = dm.Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv_entries").Scan(&count))
	assert.Equal(t, 0, count)

	status, err := dm.Status(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
}

func TestManager_StatusBeforeMigrations(t *testing.T) {
	cfg := sqliteConfig(t)
	status, err := newTestManager().Status(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(0), status.Version)
	assert.Equal(t, uint(2), status.Latest)
}

func TestManager_OpenRejectsBadConfig(t *testing.T) {
	dm := newTestManager()

	_, _, err := dm.Open(context.Background(), config.StorageConfig{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidConfig, contextutils.GetErrorCode(err))

	_, _, err = dm.Open(context.Background(), config.StorageConfig{Driver: config.DriverSQLite})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidConfig, contextutils.GetErrorCode(err))
}
