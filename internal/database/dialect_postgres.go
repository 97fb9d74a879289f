package database

import (
	"database/sql"

	"learnverse/internal/config"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string { return config.DriverPostgres }

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DBSystem() attribute.KeyValue { return semconv.DBSystemPostgreSQL }

func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) UpsertEntryQuery() string {
	return `INSERT INTO kv_entries (namespace, entry_key, entry_value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at`
}

func (d *PostgresDialect) EnsureNamespaceQuery() string {
	return `INSERT INTO kv_namespaces (namespace, created_at) VALUES (?, ?) ON CONFLICT (namespace) DO NOTHING`
}

func (d *PostgresDialect) LockNamespaceQuery() string {
	return `SELECT namespace FROM kv_namespaces WHERE namespace = ? FOR UPDATE`
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB, cfg config.StorageConfig) error {
	applyPool(db, cfg)
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string { return "postgres" }

func (d *PostgresDialect) MigrationDriver(db *sql.DB) (migratedb.Driver, error) {
	return migratepostgres.WithInstance(db, &migratepostgres.Config{})
}
