// Package main provides the main entry point for the LearnVerse progress server.
// It loads configuration, builds the service container and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"learnverse/internal/config"
	"learnverse/internal/di"
	"learnverse/internal/handlers"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"

	"github.com/joho/godotenv"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	handler   http.Handler
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	progressService, err := container.GetProgressService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get progress service")
	}
	attemptService, err := container.GetAttemptService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get attempt service")
	}
	badgeService, err := container.GetBadgeService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get badge service")
	}
	insightsService, err := container.GetInsightsService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get insights service")
	}
	challengeService, err := container.GetChallengeService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get challenge service")
	}
	profileService, err := container.GetProfileService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get profile service")
	}
	quoteService, err := container.GetQuoteService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get quote service")
	}
	transferService, err := container.GetTransferService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get transfer service")
	}

	router := handlers.NewRouter(
		container.GetConfig(),
		progressService,
		attemptService,
		badgeService,
		insightsService,
		challengeService,
		profileService,
		quoteService,
		transferService,
		container.GetLogger(),
	)

	return &Application{
		container: container,
		handler:   router,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
func (a *Application) Run(ctx context.Context, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           a.handler,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return contextutils.WrapError(err, "server shutdown failed")
		}
		return nil
	case err := <-serverErr:
		if err == nil {
			return nil
		}
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown gracefully shuts down the application
func (a *Application) Shutdown(ctx context.Context) error {
	return a.container.Shutdown(ctx)
}

func main() {
	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	providers, err := observability.SetupObservability(&cfg.OpenTelemetry, "learnverse-server", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	logger := providers.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Error shutting down telemetry providers", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.Info(ctx, "Starting LearnVerse server", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
		"storage":  cfg.Storage.Driver,
		"timezone": cfg.Progress.Timezone,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		_ = container.Shutdown(context.Background())
		os.Exit(1)
	}

	runErr := app.Run(ctx, cfg.Server.Port)
	if runErr != nil {
		logger.Error(ctx, "Application failed", runErr)
	} else {
		logger.Info(context.Background(), "Received shutdown signal, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during application shutdown", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
	logger.Info(shutdownCtx, "Shutdown completed successfully")
}
