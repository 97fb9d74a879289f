// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"learnverse/internal/config"
	"learnverse/internal/di"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// Env carries the shared resources of one adm invocation. The service container
// is opened on first use so commands that only touch the schema never build it.
type Env struct {
	Config  *config.Config
	Logger  *observability.Logger
	Options []di.Option

	mu        sync.Mutex
	container *di.ServiceContainer
}

// Container returns the initialized service container
func (e *Env) Container(ctx context.Context) (*di.ServiceContainer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.container != nil {
		return e.container, nil
	}
	container := di.NewServiceContainer(e.Config, e.Logger, e.Options...)
	if err := container.Initialize(ctx); err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize services")
	}
	e.container = container
	return container, nil
}

// Close shuts the container down if it was opened
func (e *Env) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.container == nil {
		return nil
	}
	err := e.container.Shutdown(ctx)
	e.container = nil
	return err
}

// maskDSN masks the credentials of a connection string for display
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	scheme := ""
	if i := strings.Index(dsn, "://"); i >= 0 && i < at {
		scheme = dsn[:i+3]
	}
	return scheme + "***:***" + dsn[at:]
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return contextutils.WrapError(err, "failed to encode output")
	}
	return nil
}

// parsePositive parses a 1-based number argument
func parsePositive(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}

// printList writes one item per line, or a placeholder when empty
func printList(w io.Writer, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
}
