package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"learnverse/internal/config"
	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *observability.Logger {
	return observability.NewLoggerFromZap(zap.NewNop())
}

func testClock() services.FixedClock {
	return services.FixedClock{T: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
}

func newInitializedContainer(t *testing.T, cfg *config.Config) *ServiceContainer {
	t.Helper()
	sc := NewServiceContainer(cfg, testLogger(), WithClock(testClock()), WithMetrics(observability.NoopProgressMetrics()))
	require.NoError(t, sc.Initialize(context.Background()))
	t.Cleanup(func() { _ = sc.Shutdown(context.Background()) })
	return sc
}

func TestServiceContainer_InitializeMemory(t *testing.T) {
	sc := newInitializedContainer(t, config.Default())

	assert.Equal(t, config.DriverMemory, sc.GetBackend().Name())
	assert.NotNil(t, sc.GetCatalog())
	assert.NotNil(t, sc.GetConfig())
	assert.NotNil(t, sc.GetLogger())

	progress, err := sc.GetProgressService()
	require.NoError(t, err)
	assert.NotNil(t, progress)

	getters := map[string]func() (interface{}, error){
		"attempts":   func() (interface{}, error) { return sc.GetAttemptService() },
		"badges":     func() (interface{}, error) { return sc.GetBadgeService() },
		"insights":   func() (interface{}, error) { return sc.GetInsightsService() },
		"challenges": func() (interface{}, error) { return sc.GetChallengeService() },
		"profiles":   func() (interface{}, error) { return sc.GetProfileService() },
		"quotes":     func() (interface{}, error) { return sc.GetQuoteService() },
		"transfer":   func() (interface{}, error) { return sc.GetTransferService() },
	}
	for name, get := range getters {
		t.Run(name, func(t *testing.T) {
			svc, err := get()
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestServiceContainer_ServicesShareState(t *testing.T) {
	sc := newInitializedContainer(t, config.Default())
	ctx := context.Background()

	progress, err := sc.GetProgressService()
	require.NoError(t, err)
	_, err = progress.RecordCompletion(ctx, "p1", "science-1")
	require.NoError(t, err)

	badges, err := sc.GetBadgeService()
	require.NoError(t, err)
	earned, err := badges.EarnedBadges(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "science_beginner", earned[0].ID)
}

func TestServiceContainer_GetServiceErrors(t *testing.T) {
	sc := newInitializedContainer(t, config.Default())

	_, err := sc.GetService("missing")
	assert.Error(t, err)

	_, err = GetServiceAs[services.QuoteServiceInterface](sc, "progress")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not of expected type")
}

func TestServiceContainer_InitializeFailsOnMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	sc := NewServiceContainer(cfg, testLogger())
	err := sc.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestServiceContainer_ReconcileOnStartup(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "learnverse.db"),
		AutoMigrate: true,
	}

	// Seed a badge list that drifted from the completed modules
	first := NewServiceContainer(cfg, testLogger(), WithClock(testClock()))
	require.NoError(t, first.Initialize(ctx))
	store := first.GetBackend().Namespace("p1")
	require.NoError(t, store.Set(ctx, services.KeyCompletedModules, `["science-1"]`))
	require.NoError(t, store.Set(ctx, services.KeyBadges, `["ghost_badge"]`))
	require.NoError(t, first.Shutdown(ctx))

	cfg.Progress.ReconcileOnStartup = true
	second := newInitializedContainer(t, cfg)

	badges, err := second.GetBadgeService()
	require.NoError(t, err)
	earned, err := badges.EarnedBadges(ctx, "p1")
	require.NoError(t, err)
	ids := make([]string, 0, len(earned))
	for _, b := range earned {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"science_beginner"}, ids)

	progress, err := second.GetProgressService()
	require.NoError(t, err)
	completed, err := progress.CompletedModules(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"science-1"}, completed)
}

func TestServiceContainer_ShutdownIsIdempotent(t *testing.T) {
	sc := NewServiceContainer(config.Default(), testLogger())
	require.NoError(t, sc.Initialize(context.Background()))

	assert.NoError(t, sc.Shutdown(context.Background()))
	assert.NoError(t, sc.Shutdown(context.Background()))
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)
