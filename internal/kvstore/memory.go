package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"learnverse/internal/config"
	"learnverse/internal/observability"
)

// MemoryBackend keeps every namespace in process memory
type MemoryBackend struct {
	mu      sync.RWMutex
	data    map[string]map[string]string
	locks   map[string]*sync.Mutex
	logger  *observability.Logger
	metrics *observability.ProgressMetrics
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend(logger *observability.Logger, metrics *observability.ProgressMetrics) *MemoryBackend {
	return &MemoryBackend{
		data:    make(map[string]map[string]string),
		locks:   make(map[string]*sync.Mutex),
		logger:  logger,
		metrics: metrics,
	}
}

// Name returns the storage driver name
func (b *MemoryBackend) Name() string { return config.DriverMemory }

// Namespace returns the store of one profile
func (b *MemoryBackend) Namespace(id string) Store {
	return &memoryStore{backend: b, namespace: id}
}

// Namespaces lists every namespace that has been written to
func (b *MemoryBackend) Namespaces(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.data))
	for ns := range b.data {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op
func (b *MemoryBackend) Close() error { return nil }

func (b *MemoryBackend) namespaceLock(ns string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		b.locks[ns] = l
	}
	return l
}

func (b *MemoryBackend) get(ns, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[ns][key]
	return v, ok
}

func (b *MemoryBackend) keys(ns, prefix string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for k := range b.data[ns] {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// apply writes staged changes; a nil value pointer deletes the key
func (b *MemoryBackend) apply(ns string, changes map[string]*string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries, ok := b.data[ns]
	if !ok {
		entries = make(map[string]string)
		b.data[ns] = entries
	}
	for k, v := range changes {
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = *v
	}
}

type memoryStore struct {
	backend   *MemoryBackend
	namespace string
}

func (s *memoryStore) Namespace() string { return s.namespace }

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.backend.get(s.namespace, key)
	return v, ok, nil
}

func (s *memoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	return s.backend.keys(s.namespace, prefix), nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Set(ctx, key, value) })
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Delete(ctx, key) })
}

func (s *memoryStore) Update(ctx context.Context, fn func(tx Tx) error) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "Update",
		observability.AttributeProfileID(s.namespace),
		observability.AttributeStoreBackend(config.DriverMemory),
	)
	defer observability.FinishSpan(span, &err)

	start := time.Now()
	defer func() {
		s.backend.metrics.StoreUpdateObserved(ctx, float64(time.Since(start).Microseconds())/1000, config.DriverMemory, err != nil)
	}()

	lock := s.backend.namespaceLock(s.namespace)
	lock.Lock()
	defer lock.Unlock()

	tx := &memoryTx{store: s, changes: make(map[string]*string)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.changes) > 0 {
		s.backend.apply(s.namespace, tx.changes)
	}
	return nil
}

// memoryTx stages writes over the committed entries
type memoryTx struct {
	store   *memoryStore
	changes map[string]*string
}

func (t *memoryTx) Get(_ context.Context, key string) (string, bool, error) {
	if v, staged := t.changes[key]; staged {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	v, ok := t.store.backend.get(t.store.namespace, key)
	return v, ok, nil
}

func (t *memoryTx) Keys(_ context.Context, prefix string) ([]string, error) {
	set := make(map[string]struct{})
	for _, k := range t.store.backend.keys(t.store.namespace, prefix) {
		set[k] = struct{}{}
	}
	for k, v := range t.changes {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if v == nil {
			delete(set, k)
		} else {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (t *memoryTx) Set(_ context.Context, key, value string) error {
	v := value
	t.changes[key] = &v
	return nil
}

func (t *memoryTx) Delete(_ context.Context, key string) error {
	t.changes[key] = nil
	return nil
}
