package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testProfile = "profile-1"

// stepClock is a clock tests can move forward
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.AddDate(0, 0, n)
}

type testEnv struct {
	backend    kvstore.Backend
	catalog    *catalog.Catalog
	cfg        *config.Config
	clock      *stepClock
	badges     *BadgeService
	progress   *ProgressService
	attempts   *AttemptService
	insights   *InsightsService
	challenges *ChallengeService
	profiles   *ProfileService
	transfer   *TransferService
}

func testLogger() *observability.Logger {
	return observability.NewLoggerFromZap(zap.NewNop())
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	return newTestEnvWithBackend(t, kvstore.NewMemoryBackend(logger, nil))
}

func newTestEnvWithBackend(t *testing.T, backend kvstore.Backend) *testEnv {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)
	schemas, err := LoadProfileKeySchemas()
	require.NoError(t, err)

	cfg := config.Default()
	logger := testLogger()
	clock := &stepClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	calendar := NewCalendar(clock, "UTC")

	env := &testEnv{backend: backend, catalog: cat, cfg: cfg, clock: clock}
	env.badges = NewBadgeService(backend, cat, calendar, cfg, logger, nil)
	env.progress = NewProgressService(backend, cat, env.badges, calendar, cfg, logger, nil)
	env.attempts = NewAttemptService(backend, env.progress, logger, nil)
	env.insights = NewInsightsService(backend, cat, calendar, cfg, logger)
	env.challenges = NewChallengeService(backend, cat, env.badges, calendar, logger, nil)
	env.profiles = NewProfileService(backend, cfg, logger)
	env.transfer = NewTransferService(backend, env.badges, schemas, calendar, cfg, logger)
	return env
}

// dump returns every key and value of a profile
func dump(t *testing.T, backend kvstore.Backend, profileID string) map[string]string {
	t.Helper()
	ctx := context.Background()
	store := backend.Namespace(profileID)
	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, found, err := store.Get(ctx, k)
		require.NoError(t, err)
		if found {
			out[k] = v
		}
	}
	return out
}

var errInjectedWrite = errors.New("injected write failure")

// failingBackend fails every transactional write of one key
type failingBackend struct {
	kvstore.Backend
	failKey string
}

func (b *failingBackend) Namespace(id string) kvstore.Store {
	return &failingStore{Store: b.Backend.Namespace(id), failKey: b.failKey}
}

type failingStore struct {
	kvstore.Store
	failKey string
}

func (s *failingStore) Update(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	return s.Store.Update(ctx, func(tx kvstore.Tx) error {
		return fn(&failingTx{Tx: tx, failKey: s.failKey})
	})
}

type failingTx struct {
	kvstore.Tx
	failKey string
}

func (t *failingTx) Set(ctx context.Context, key, value string) error {
	if key == t.failKey {
		return errInjectedWrite
	}
	return t.Tx.Set(ctx, key, value)
}
