package observability

import (
	"context"
	"errors"
	"os"

	"learnverse/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Providers bundles what SetupObservability created so callers can shut it down
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *Logger
}

// SetupObservability initializes tracing, metrics, and logging for a service.
// A nil TracerProvider or MeterProvider means that signal is disabled.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName, logLevel string) (result0 *Providers, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, err
	}

	p := &Providers{Logger: NewLoggerWithLevel(cfg, ParseLevel(logLevel))}

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			p.TracerProvider = autosdk.TracerProvider()
			p.Logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			p.TracerProvider, err = InitStandardTracing(cfg)
			if err != nil {
				return nil, err
			}
			p.Logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}
		otel.SetTracerProvider(p.TracerProvider)
		InitTracing(cfg)
		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		p.MeterProvider, err = InitMetrics(cfg)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(p.MeterProvider)
	}

	return p, nil
}

// Shutdown flushes and stops every provider that was started
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if sdkTP, ok := p.TracerProvider.(*sdktrace.TracerProvider); ok {
		errs = append(errs, sdkTP.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if p.Logger != nil {
		// stdout sync fails on some terminals; not worth surfacing
		_ = p.Logger.Sync()
	}
	return errors.Join(errs...)
}
