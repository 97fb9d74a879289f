// Package main provides the main entry point for the LearnVerse admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"learnverse/cmd/adm/commands"
	"learnverse/internal/config"
	"learnverse/internal/observability"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	// Fall back to the config next to the repo when none is named
	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
					return 1
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Keep the terminal for command output and skip exporter connections
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	providers, err := observability.SetupObservability(&cfg.OpenTelemetry, "learnverse-adm", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down telemetry providers: %v\n", err)
		}
	}()

	env := &commands.Env{Config: cfg, Logger: providers.Logger}
	defer func() {
		if err := env.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing store: %v\n", err)
		}
	}()

	if err := commands.NewRootCommand(env).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
