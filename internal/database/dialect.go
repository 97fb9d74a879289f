package database

import (
	"database/sql"
	"regexp"
	"strconv"

	"learnverse/internal/config"
	contextutils "learnverse/internal/utils"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	"go.opentelemetry.io/otel/attribute"
)

// Dialect captures what differs between the SQL backends of the key-value store
type Dialect interface {
	// Name is the storage driver name used in configuration
	Name() string

	// DriverName returns the database/sql driver that gets wrapped by otelsql
	DriverName() string

	// DBSystem is the semconv db.system attribute for tracing
	DBSystem() attribute.KeyValue

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// UpsertEntryQuery writes (namespace, key, value, updated_at), replacing any existing value
	UpsertEntryQuery() string

	// EnsureNamespaceQuery inserts (namespace, created_at) unless the namespace exists
	EnsureNamespaceQuery() string

	// LockNamespaceQuery serializes transactions of one namespace; empty when the
	// connection setup already serializes writers
	LockNamespaceQuery() string

	// ConfigureConnection applies pool and session settings
	ConfigureConnection(db *sql.DB, cfg config.StorageConfig) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// MigrationDriver wraps db for golang-migrate
	MigrationDriver(db *sql.DB) (migratedb.Driver, error)
}

// DialectFor returns the dialect for a configured storage driver
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return NewPostgresDialect(), nil
	case config.DriverSQLite:
		return NewSQLiteDialect(), nil
	case config.DriverMySQL:
		return NewMySQLDialect(), nil
	default:
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"no SQL dialect for storage driver", driver)
	}
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// applyPool sets the pool limits from configuration
func applyPool(db *sql.DB, cfg config.StorageConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}
