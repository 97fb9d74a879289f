package database

import (
	"database/sql"

	"learnverse/internal/config"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string { return config.DriverMySQL }

func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) DBSystem() attribute.KeyValue { return semconv.DBSystemMySQL }

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) UpsertEntryQuery() string {
	return "INSERT INTO kv_entries (namespace, entry_key, entry_value, updated_at) VALUES (?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = VALUES(updated_at)"
}

func (d *MySQLDialect) EnsureNamespaceQuery() string {
	return "INSERT IGNORE INTO kv_namespaces (namespace, created_at) VALUES (?, ?)"
}

func (d *MySQLDialect) LockNamespaceQuery() string {
	return "SELECT namespace FROM kv_namespaces WHERE namespace = ? FOR UPDATE"
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB, cfg config.StorageConfig) error {
	applyPool(db, cfg)
	return nil
}

func (d *MySQLDialect) MigrationsSubdir() string { return "mysql" }

func (d *MySQLDialect) MigrationDriver(db *sql.DB) (migratedb.Driver, error) {
	return migratemysql.WithInstance(db, &migratemysql.Config{})
}
