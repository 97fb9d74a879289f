package database

import (
	"testing"

	"learnverse/internal/config"
	contextutils "learnverse/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver     string
		driverName string
		subdir     string
		lockQuery  bool
	}{
		{config.DriverPostgres, "postgres", "postgres", true},
		{config.DriverSQLite, "sqlite", "sqlite", false},
		{config.DriverMySQL, "mysql", "mysql", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := DialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.Name())
			assert.Equal(t, tt.driverName, d.DriverName())
			assert.Equal(t, tt.subdir, d.MigrationsSubdir())
			assert.Equal(t, tt.lockQuery, d.LockNamespaceQuery() != "")
			assert.Contains(t, d.UpsertEntryQuery(), "kv_entries")
			assert.Contains(t, d.EnsureNamespaceQuery(), "kv_namespaces")
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := DialectFor(config.DriverMemory)
		require.Error(t, err)
		assert.Equal(t, contextutils.ErrorCodeInvalidConfig, contextutils.GetErrorCode(err))
	})
}

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"none", "SELECT 1", "SELECT 1"},
		{"single", "SELECT * FROM kv_entries WHERE namespace = ?", "SELECT * FROM kv_entries WHERE namespace = $1"},
		{
			"multiple",
			"SELECT entry_value FROM kv_entries WHERE namespace = ? AND entry_key = ?",
			"SELECT entry_value FROM kv_entries WHERE namespace = $1 AND entry_key = $2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rewritePlaceholdersToNumbered(tt.query))
		})
	}
}

func TestDialectRewriteQuery(t *testing.T) {
	q := "DELETE FROM kv_entries WHERE namespace = ? AND entry_key = ?"
	assert.Equal(t, "DELETE FROM kv_entries WHERE namespace = $1 AND entry_key = $2", NewPostgresDialect().RewriteQuery(q))
	assert.Equal(t, q, NewSQLiteDialect().RewriteQuery(q))
	assert.Equal(t, q, NewMySQLDialect().RewriteQuery(q))
}

func TestLatestMigrationVersion(t *testing.T) {
	for _, d := range []Dialect{NewPostgresDialect(), NewSQLiteDialect(), NewMySQLDialect()} {
		v, err := LatestMigrationVersion(d)
		require.NoError(t, err)
		assert.Equal(t, uint(2), v, d.Name())
	}
}
