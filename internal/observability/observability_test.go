package observability

import (
	"context"
	"testing"

	"learnverse/internal/config"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupObservability_NoneEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName: "test-service",
		Protocol:    "grpc",
		Endpoint:    "localhost:4317",
		Insecure:    true,
	}
	p, err := SetupObservability(cfg, "test-service", "info")
	require.NoError(t, err)
	require.Nil(t, p.TracerProvider)
	require.Nil(t, p.MeterProvider)
	// Logger is always returned (no-op when disabled)
	require.NotNil(t, p.Logger)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupObservability_StandardSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		EnableMetrics:  true,
		ServiceVersion: "1.0.0",
		Protocol:       "grpc",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SamplingRate:   1.0,
	}
	p, err := SetupObservability(cfg, "learnverse-test", "debug")
	require.NoError(t, err)
	require.Equal(t, "learnverse-test", cfg.ServiceName)

	_, isStandardSDK := p.TracerProvider.(*sdktrace.TracerProvider)
	require.True(t, isStandardSDK, "expected standard SDK TracerProvider when UseAutoSDK is false")
	require.NotNil(t, p.MeterProvider)

	// Exports to a collector that isn't running; only make sure shutdown returns.
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestSetupObservability_UseAutoSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		UseAutoSDK:     true,
		ServiceVersion: "1.0.0",
		Protocol:       "grpc",
	}
	p, err := SetupObservability(cfg, "test-service", "info")
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)

	_, isStandardSDK := p.TracerProvider.(*sdktrace.TracerProvider)
	require.False(t, isStandardSDK, "expected Auto SDK TracerProvider")
}

func TestInitStandardTracing_HTTP(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Protocol:       "http",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SamplingRate:   0.5,
	}
	tp, err := InitStandardTracing(cfg)
	require.NoError(t, err)

	_, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok, "expected *sdktrace.TracerProvider")
}

func TestInitStandardTracing_InvalidProtocol(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName: "test-service",
		Protocol:    "invalid",
		Endpoint:    "localhost:4317",
	}
	tp, err := InitStandardTracing(cfg)
	require.Error(t, err)
	require.Nil(t, tp)
	require.Contains(t, err.Error(), "unsupported otel protocol")
}

func TestLogger_DisabledIsNop(_ *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	ctx := context.Background()
	logger.Info(ctx, "test message")
	logger.Error(ctx, "test error", nil)

	ctx, span := noop.NewTracerProvider().Tracer("test").Start(ctx, "test-span")
	logger.Warn(ctx, "test message with span", map[string]interface{}{"k": "v"})
	span.End()
}
