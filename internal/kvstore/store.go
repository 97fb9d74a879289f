// Package kvstore is the key-value persistence layer for learner profiles.
// Every profile is an isolated namespace of string keys holding JSON text.
package kvstore

import (
	"context"
	"encoding/json"

	contextutils "learnverse/internal/utils"
)

// Reader reads keys of one namespace
type Reader interface {
	// Get returns the value of key; an absent key is found == false, not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Tx reads and writes keys of one namespace. Inside Update it is bound to the transaction.
type Tx interface {
	Reader
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the key-value view of one profile namespace
type Store interface {
	Tx
	// Update runs fn in a transaction. Reads inside fn see its own writes; when fn
	// returns an error nothing is written. Updates of one namespace are serialized.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// Namespace returns the profile id this store is scoped to
	Namespace() string
}

// Backend opens stores per namespace
type Backend interface {
	Namespace(id string) Store
	// Namespaces lists every namespace that has been written to, sorted
	Namespaces(ctx context.Context) ([]string, error)
	// Name is the configured storage driver
	Name() string
	Close() error
}

// GetJSON decodes the value at key into dst. An absent key leaves dst untouched
// and returns false. A value that does not decode is ErrCorruptRecord.
func GetJSON(ctx context.Context, r Reader, key string, dst interface{}) (bool, error) {
	raw, found, err := r.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, CorruptRecordError(key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key
func SetJSON(ctx context.Context, tx Tx, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode %s: %v", key, err)
	}
	return tx.Set(ctx, key, string(data))
}

// CorruptRecordError reports a persisted value that cannot be decoded
func CorruptRecordError(key string, cause error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeCorruptRecord, contextutils.SeverityError,
		contextutils.ErrCorruptRecord.Message, key, cause)
}
