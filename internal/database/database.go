// Package database opens the SQL backends of the key-value store and applies their schema.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"learnverse/internal/config"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.nhat.io/otelsql"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed migrations
var migrationsFS embed.FS

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriversMu sync.Mutex
	// otelDrivers caches the instrumented driver name per underlying driver
	otelDrivers = map[string]string{}
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// MigrationStatus describes the schema version of a database
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	Latest  uint `json:"latest"`
}

// Open connects to the configured SQL backend through an otelsql-instrumented driver.
// Migrations run first when cfg.AutoMigrate is set.
func (dm *Manager) Open(ctx context.Context, cfg config.StorageConfig) (result0 *sql.DB, result1 Dialect, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Open",
		attribute.String("db.driver", cfg.Driver),
		attribute.Bool("migrations.enabled", cfg.AutoMigrate),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
	)
	defer observability.FinishSpan(span, &err)

	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DSN == "" {
		return nil, nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"storage dsn is required", cfg.Driver)
	}

	if cfg.AutoMigrate {
		if err := dm.Migrate(ctx, cfg); err != nil {
			return nil, nil, err
		}
	}

	driverName, err := registerInstrumentedDriver(dialect)
	if err != nil {
		return nil, nil, contextutils.WrapError(err, "failed to register otelsql driver")
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, nil, contextutils.StorageError(err, "open database connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		dm.closeQuietly(ctx, db)
		return nil, nil, contextutils.StorageError(err, "ping database")
	}

	if err := dialect.ConfigureConnection(db, cfg); err != nil {
		dm.closeQuietly(ctx, db)
		return nil, nil, contextutils.StorageError(err, "configure database connection")
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"driver":            dialect.Name(),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})
	return db, dialect, nil
}

// Migrate applies every pending migration for the configured backend.
// It uses its own connection because closing a golang-migrate instance closes the database it wraps.
func (dm *Manager) Migrate(ctx context.Context, cfg config.StorageConfig) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Migrate",
		attribute.String("db.driver", cfg.Driver),
		attribute.String("migration.type", "golang_migrate"),
	)
	defer observability.FinishSpan(span, &err)

	m, err := dm.newMigrate(cfg)
	if err != nil {
		return err
	}
	defer dm.closeMigrate(ctx, m)

	dm.logger.Info(ctx, "Starting database migrations...", map[string]interface{}{"driver": cfg.Driver})
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "golang-migrate up failed")
	}

	version, _, verr := m.Version()
	if verr == nil {
		span.SetAttributes(attribute.Int64("migration.version", int64(version)))
	}
	dm.logger.Info(ctx, "Database migrations completed successfully", map[string]interface{}{"version": version})
	return nil
}

// Reset rolls every migration back and applies them again, deleting all stored profiles
func (dm *Manager) Reset(ctx context.Context, cfg config.StorageConfig) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Reset", attribute.String("db.driver", cfg.Driver))
	defer observability.FinishSpan(span, &err)

	m, err := dm.newMigrate(cfg)
	if err != nil {
		return err
	}
	defer dm.closeMigrate(ctx, m)

	dm.logger.Warn(ctx, "Dropping every stored profile", map[string]interface{}{"driver": cfg.Driver})
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "golang-migrate down failed")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "golang-migrate up failed")
	}
	dm.logger.Info(ctx, "Database reset completed")
	return nil
}

// Status reports the applied schema version next to the latest embedded one
func (dm *Manager) Status(ctx context.Context, cfg config.StorageConfig) (result0 *MigrationStatus, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Status", attribute.String("db.driver", cfg.Driver))
	defer observability.FinishSpan(span, &err)

	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	latest, err := LatestMigrationVersion(dialect)
	if err != nil {
		return nil, err
	}

	m, err := dm.newMigrate(cfg)
	if err != nil {
		return nil, err
	}
	defer dm.closeMigrate(ctx, m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &MigrationStatus{Latest: latest}, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read migration version")
	}
	return &MigrationStatus{Version: version, Dirty: dirty, Latest: latest}, nil
}

// LatestMigrationVersion returns the highest embedded migration version for a dialect
func LatestMigrationVersion(dialect Dialect) (uint, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations/"+dialect.MigrationsSubdir())
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to read embedded migrations")
	}
	var latest uint
	for _, e := range entries {
		prefix, _, found := strings.Cut(e.Name(), "_")
		if !found {
			continue
		}
		if v, err := strconv.ParseUint(prefix, 10, 64); err == nil && uint(v) > latest {
			latest = uint(v)
		}
	}
	return latest, nil
}

func (dm *Manager) newMigrate(cfg config.StorageConfig) (*migrate.Migrate, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations/"+dialect.MigrationsSubdir())
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load embedded migrations")
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, contextutils.StorageError(err, "open migration connection")
	}

	driver, err := dialect.MigrationDriver(db)
	if err != nil {
		_ = db.Close()
		return nil, contextutils.StorageError(err, "initialize migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect.MigrationsSubdir(), driver)
	if err != nil {
		_ = db.Close()
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, nil
}

func (dm *Manager) closeMigrate(ctx context.Context, m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		dm.logger.Error(ctx, "Error closing migration source", srcErr)
	}
	if dbErr != nil {
		dm.logger.Error(ctx, "Error closing migration database", dbErr)
	}
}

func (dm *Manager) closeQuietly(ctx context.Context, db *sql.DB) {
	if closeErr := db.Close(); closeErr != nil {
		dm.logger.Error(ctx, "Failed to close database connection", closeErr)
	}
}

// registerInstrumentedDriver registers an otelsql wrapper once per process and driver
func registerInstrumentedDriver(dialect Dialect) (string, error) {
	otelDriversMu.Lock()
	defer otelDriversMu.Unlock()

	if name, ok := otelDrivers[dialect.DriverName()]; ok {
		return name, nil
	}
	name, err := otelsql.Register(dialect.DriverName(),
		otelsql.TraceQueryWithArgs(),
		otelsql.WithSystem(dialect.DBSystem()),
		otelsql.TraceRowsAffected(),
	)
	if err != nil {
		return "", err
	}
	otelDrivers[dialect.DriverName()] = name
	return name, nil
}
