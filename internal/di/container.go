// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"errors"
	"sync"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/observability"
	"learnverse/internal/services"
	contextutils "learnverse/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetProgressService() (services.ProgressServiceInterface, error)
	GetAttemptService() (services.AttemptServiceInterface, error)
	GetBadgeService() (services.BadgeServiceInterface, error)
	GetInsightsService() (services.InsightsServiceInterface, error)
	GetChallengeService() (services.ChallengeServiceInterface, error)
	GetProfileService() (services.ProfileServiceInterface, error)
	GetQuoteService() (services.QuoteServiceInterface, error)
	GetTransferService() (services.TransferServiceInterface, error)
	GetBackend() kvstore.Backend
	GetCatalog() *catalog.Catalog
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Option customizes a ServiceContainer before Initialize
type Option func(*ServiceContainer)

// WithClock replaces the wall clock used for "today"
func WithClock(clock services.Clock) Option {
	return func(sc *ServiceContainer) { sc.clock = clock }
}

// WithMetrics records domain counters on the given metrics instead of the global provider
func WithMetrics(metrics *observability.ProgressMetrics) Option {
	return func(sc *ServiceContainer) { sc.metrics = metrics }
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	clock         services.Clock
	metrics       *observability.ProgressMetrics
	backend       kvstore.Backend
	catalog       *catalog.Catalog
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, opts ...Option) *ServiceContainer {
	sc := &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		clock:    services.SystemClock{},
		services: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.metrics == nil {
		metrics, err := observability.NewProgressMetrics(nil)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to create progress metrics")
		}
		sc.metrics = metrics
	}

	cat, err := sc.loadCatalog()
	if err != nil {
		return err
	}
	sc.catalog = cat

	backend, err := kvstore.Open(ctx, sc.cfg.Storage, sc.logger, sc.metrics)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to open %s store", sc.cfg.Storage.Driver)
	}
	sc.backend = backend
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return backend.Close()
	})

	if err := sc.initializeServices(); err != nil {
		_ = sc.cleanup(ctx)
		return err
	}

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	return nil
}

func (sc *ServiceContainer) loadCatalog() (*catalog.Catalog, error) {
	if sc.cfg.Catalog.Path == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to load built-in catalog")
		}
		return cat, nil
	}
	cat, err := catalog.Load(sc.cfg.Catalog.Path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load catalog %s", sc.cfg.Catalog.Path)
	}
	sc.logger.Info(context.Background(), "Loaded catalog from file", map[string]interface{}{"path": sc.cfg.Catalog.Path})
	return cat, nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetProgressService returns the progress ledger service
func (sc *ServiceContainer) GetProgressService() (services.ProgressServiceInterface, error) {
	return GetServiceAs[services.ProgressServiceInterface](sc, "progress")
}

// GetAttemptService returns the quiz attempt log service
func (sc *ServiceContainer) GetAttemptService() (services.AttemptServiceInterface, error) {
	return GetServiceAs[services.AttemptServiceInterface](sc, "attempts")
}

// GetBadgeService returns the badge and skill service
func (sc *ServiceContainer) GetBadgeService() (services.BadgeServiceInterface, error) {
	return GetServiceAs[services.BadgeServiceInterface](sc, "badges")
}

// GetInsightsService returns the leaderboard and performance service
func (sc *ServiceContainer) GetInsightsService() (services.InsightsServiceInterface, error) {
	return GetServiceAs[services.InsightsServiceInterface](sc, "insights")
}

// GetChallengeService returns the daily challenge service
func (sc *ServiceContainer) GetChallengeService() (services.ChallengeServiceInterface, error) {
	return GetServiceAs[services.ChallengeServiceInterface](sc, "challenges")
}

// GetProfileService returns the profile settings service
func (sc *ServiceContainer) GetProfileService() (services.ProfileServiceInterface, error) {
	return GetServiceAs[services.ProfileServiceInterface](sc, "profiles")
}

// GetQuoteService returns the quote client
func (sc *ServiceContainer) GetQuoteService() (services.QuoteServiceInterface, error) {
	return GetServiceAs[services.QuoteServiceInterface](sc, "quotes")
}

// GetTransferService returns the export/import service
func (sc *ServiceContainer) GetTransferService() (services.TransferServiceInterface, error) {
	return GetServiceAs[services.TransferServiceInterface](sc, "transfer")
}

// GetBackend returns the key-value store
func (sc *ServiceContainer) GetBackend() kvstore.Backend {
	return sc.backend
}

// GetCatalog returns the loaded catalog
func (sc *ServiceContainer) GetCatalog() *catalog.Catalog {
	return sc.catalog
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices repairs stored badge lists when configured to
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	if !sc.cfg.Progress.ReconcileOnStartup {
		return nil
	}
	badges, ok := sc.services["badges"].(*services.BadgeService)
	if !ok {
		return contextutils.ErrorWithContextf("badge service not registered")
	}

	sc.logger.Info(ctx, "Reconciling badges of every profile")
	if _, err := badges.ReconcileAll(ctx); err != nil {
		// one unreadable profile must not keep the server down
		sc.logger.Warn(ctx, "Some profiles could not be reconciled", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// cleanup runs shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil
	return errors.Join(errs...)
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices() error {
	schemas, err := services.LoadProfileKeySchemas()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to load profile key schemas")
	}
	calendar := services.NewCalendar(sc.clock, sc.cfg.Progress.Timezone)

	// Badge service is the award authority the event services run inside their transactions
	badgeService := services.NewBadgeService(sc.backend, sc.catalog, calendar, sc.cfg, sc.logger, sc.metrics)
	sc.services["badges"] = badgeService

	progressService := services.NewProgressService(sc.backend, sc.catalog, badgeService, calendar, sc.cfg, sc.logger, sc.metrics)
	sc.services["progress"] = progressService

	sc.services["attempts"] = services.NewAttemptService(sc.backend, progressService, sc.logger, sc.metrics)
	sc.services["insights"] = services.NewInsightsService(sc.backend, sc.catalog, calendar, sc.cfg, sc.logger)
	sc.services["challenges"] = services.NewChallengeService(sc.backend, sc.catalog, badgeService, calendar, sc.logger, sc.metrics)
	sc.services["profiles"] = services.NewProfileService(sc.backend, sc.cfg, sc.logger)
	sc.services["quotes"] = services.NewQuoteService(sc.cfg, sc.logger)
	sc.services["transfer"] = services.NewTransferService(sc.backend, badgeService, schemas, calendar, sc.cfg, sc.logger)
	return nil
}
