package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"learnverse/internal/database"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

const (
	getEntryQuery      = "SELECT entry_value FROM kv_entries WHERE namespace = ? AND entry_key = ?"
	keysQuery          = "SELECT entry_key FROM kv_entries WHERE namespace = ? AND entry_key LIKE ? ESCAPE '!'"
	deleteEntryQuery   = "DELETE FROM kv_entries WHERE namespace = ? AND entry_key = ?"
	listNamespaceQuery = "SELECT namespace FROM kv_namespaces ORDER BY namespace"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLBackend stores namespaces in the kv_entries table of a SQL database
type SQLBackend struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *observability.Logger
	metrics *observability.ProgressMetrics
	now     func() time.Time
}

// NewSQLBackend wraps an open database whose schema is migrated
func NewSQLBackend(db *sql.DB, dialect database.Dialect, logger *observability.Logger, metrics *observability.ProgressMetrics) *SQLBackend {
	return &SQLBackend{
		db:      db,
		dialect: dialect,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Name returns the storage driver name
func (b *SQLBackend) Name() string { return b.dialect.Name() }

// Namespace returns the store of one profile
func (b *SQLBackend) Namespace(id string) Store {
	return &sqlStore{backend: b, namespace: id}
}

// Namespaces lists every namespace that has been written to
func (b *SQLBackend) Namespaces(ctx context.Context) (result0 []string, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "Namespaces", observability.AttributeStoreBackend(b.Name()))
	defer observability.FinishSpan(span, &err)

	rows, err := b.db.QueryContext(ctx, b.dialect.RewriteQuery(listNamespaceQuery))
	if err != nil {
		return nil, contextutils.StorageError(err, "list namespaces")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			b.logger.Warn(ctx, "Failed to close namespace rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, contextutils.StorageError(err, "scan namespace")
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.StorageError(err, "list namespaces")
	}
	return out, nil
}

// Close closes the database
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// escapeLike escapes LIKE wildcards with '!' and appends the trailing match-all
func escapeLike(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}

type sqlStore struct {
	backend   *SQLBackend
	namespace string
}

func (s *sqlStore) Namespace() string { return s.namespace }

func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	return getEntry(ctx, s.backend.db, s.backend.dialect, s.namespace, key)
}

func (s *sqlStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return listKeys(ctx, s.backend.db, s.backend.dialect, s.namespace, prefix)
}

func (s *sqlStore) Set(ctx context.Context, key, value string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Set(ctx, key, value) })
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Delete(ctx, key) })
}

func (s *sqlStore) Update(ctx context.Context, fn func(tx Tx) error) (err error) {
	b := s.backend
	ctx, span := observability.TraceStoreFunction(ctx, "Update",
		observability.AttributeProfileID(s.namespace),
		observability.AttributeStoreBackend(b.Name()),
	)
	defer observability.FinishSpan(span, &err)

	start := time.Now()
	defer func() {
		b.metrics.StoreUpdateObserved(ctx, float64(time.Since(start).Microseconds())/1000, b.Name(), err != nil)
	}()

	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.StorageError(err, "begin transaction")
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			b.logger.Warn(ctx, "Failed to roll back store transaction", map[string]interface{}{
				"namespace": s.namespace,
				"error":     rbErr.Error(),
			})
		}
	}()

	if _, err := sqlTx.ExecContext(ctx, b.dialect.RewriteQuery(b.dialect.EnsureNamespaceQuery()), s.namespace, b.now().UTC()); err != nil {
		return contextutils.StorageError(err, "ensure namespace")
	}
	if lockQuery := b.dialect.LockNamespaceQuery(); lockQuery != "" {
		var locked string
		if err := sqlTx.QueryRowContext(ctx, b.dialect.RewriteQuery(lockQuery), s.namespace).Scan(&locked); err != nil {
			return contextutils.StorageError(err, "lock namespace")
		}
	}

	if err := fn(&sqlTxStore{tx: sqlTx, backend: b, namespace: s.namespace}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return contextutils.StorageError(err, "commit transaction")
	}
	committed = true
	return nil
}

// sqlTxStore is the Tx handed to Update callbacks
type sqlTxStore struct {
	tx        *sql.Tx
	backend   *SQLBackend
	namespace string
}

func (t *sqlTxStore) Get(ctx context.Context, key string) (string, bool, error) {
	return getEntry(ctx, t.tx, t.backend.dialect, t.namespace, key)
}

func (t *sqlTxStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return listKeys(ctx, t.tx, t.backend.dialect, t.namespace, prefix)
}

func (t *sqlTxStore) Set(ctx context.Context, key, value string) error {
	q := t.backend.dialect.RewriteQuery(t.backend.dialect.UpsertEntryQuery())
	if _, err := t.tx.ExecContext(ctx, q, t.namespace, key, value, t.backend.now().UTC()); err != nil {
		return contextutils.StorageError(err, "write "+key)
	}
	return nil
}

func (t *sqlTxStore) Delete(ctx context.Context, key string) error {
	if _, err := t.tx.ExecContext(ctx, t.backend.dialect.RewriteQuery(deleteEntryQuery), t.namespace, key); err != nil {
		return contextutils.StorageError(err, "delete "+key)
	}
	return nil
}

func getEntry(ctx context.Context, q querier, dialect database.Dialect, namespace, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, dialect.RewriteQuery(getEntryQuery), namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, contextutils.StorageError(err, "read "+key)
	}
	return value, true, nil
}

func listKeys(ctx context.Context, q querier, dialect database.Dialect, namespace, prefix string) (result []string, err error) {
	rows, err := q.QueryContext(ctx, dialect.RewriteQuery(keysQuery), namespace, escapeLike(prefix))
	if err != nil {
		return nil, contextutils.StorageError(err, "list keys")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.StorageError(closeErr, "list keys")
		}
	}()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, contextutils.StorageError(err, "scan key")
		}
		// LIKE is case-insensitive on some collations
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.StorageError(err, "list keys")
	}
	sort.Strings(result)
	return result, nil
}
