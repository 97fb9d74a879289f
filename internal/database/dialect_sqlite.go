package database

import (
	"database/sql"

	"learnverse/internal/config"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLiteDialect implements Dialect for SQLite (pure Go driver)
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string { return config.DriverSQLite }

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) DBSystem() attribute.KeyValue { return semconv.DBSystemSqlite }

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) UpsertEntryQuery() string {
	return `INSERT INTO kv_entries (namespace, entry_key, entry_value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`
}

func (d *SQLiteDialect) EnsureNamespaceQuery() string {
	return `INSERT INTO kv_namespaces (namespace, created_at) VALUES (?, ?) ON CONFLICT (namespace) DO NOTHING`
}

// LockNamespaceQuery is empty: a single connection already serializes transactions.
func (d *SQLiteDialect) LockNamespaceQuery() string {
	return ""
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB, _ config.StorageConfig) error {
	// One writer connection, never recycled, so PRAGMAs stick.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return err
	}
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string { return "sqlite" }

func (d *SQLiteDialect) MigrationDriver(db *sql.DB) (migratedb.Driver, error) {
	return migratesqlite.WithInstance(db, &migratesqlite.Config{})
}
