package observability

import (
	"context"

	"learnverse/internal/config"
	contextutils "learnverse/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// ProgressMetrics holds the domain counters recorded by the services
type ProgressMetrics struct {
	completions  otelmetric.Int64Counter
	quizScores   otelmetric.Int64Counter
	attempts     otelmetric.Int64Counter
	badges       otelmetric.Int64Counter
	challenges   otelmetric.Int64Counter
	storeUpdates otelmetric.Float64Histogram
}

// NewProgressMetrics creates the counters on the given meter provider.
// A nil provider uses the global one, which is a no-op until SetupObservability installs a real one.
func NewProgressMetrics(mp otelmetric.MeterProvider) (*ProgressMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("learnverse")

	m := &ProgressMetrics{}
	var err error
	if m.completions, err = meter.Int64Counter("learnverse.modules.completed",
		otelmetric.WithDescription("Modules newly completed")); err != nil {
		return nil, err
	}
	if m.quizScores, err = meter.Int64Counter("learnverse.quiz.scores",
		otelmetric.WithDescription("Quiz scores recorded")); err != nil {
		return nil, err
	}
	if m.attempts, err = meter.Int64Counter("learnverse.quiz.attempts",
		otelmetric.WithDescription("Quiz attempts appended to the log")); err != nil {
		return nil, err
	}
	if m.badges, err = meter.Int64Counter("learnverse.badges.awarded",
		otelmetric.WithDescription("Badges awarded")); err != nil {
		return nil, err
	}
	if m.challenges, err = meter.Int64Counter("learnverse.challenges.submitted",
		otelmetric.WithDescription("Daily challenge answers")); err != nil {
		return nil, err
	}
	if m.storeUpdates, err = meter.Float64Histogram("learnverse.store.update.duration",
		otelmetric.WithDescription("Duration of store transactions"), otelmetric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return m, nil
}

// NoopProgressMetrics returns metrics bound to the global provider, ignoring creation errors
func NoopProgressMetrics() *ProgressMetrics {
	m, err := NewProgressMetrics(nil)
	if err != nil {
		return &ProgressMetrics{}
	}
	return m
}

// ModuleCompleted counts a newly completed module
func (m *ProgressMetrics) ModuleCompleted(ctx context.Context, subject string) {
	if m == nil || m.completions == nil {
		return
	}
	m.completions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("subject", subject)))
}

// QuizScored counts a recorded quiz score
func (m *ProgressMetrics) QuizScored(ctx context.Context, subject string, perfect bool) {
	if m == nil || m.quizScores == nil {
		return
	}
	m.quizScores.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("subject", subject), attribute.Bool("perfect", perfect)))
}

// AttemptRecorded counts an appended quiz attempt
func (m *ProgressMetrics) AttemptRecorded(ctx context.Context, subject string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("subject", subject)))
}

// BadgesAwarded counts badges added to a profile
func (m *ProgressMetrics) BadgesAwarded(ctx context.Context, n int, source string) {
	if m == nil || m.badges == nil || n == 0 {
		return
	}
	m.badges.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("source", source)))
}

// ChallengeSubmitted counts a daily challenge answer
func (m *ProgressMetrics) ChallengeSubmitted(ctx context.Context, correct bool) {
	if m == nil || m.challenges == nil {
		return
	}
	m.challenges.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("correct", correct)))
}

// StoreUpdateObserved records the duration of one store transaction
func (m *ProgressMetrics) StoreUpdateObserved(ctx context.Context, ms float64, backend string, failed bool) {
	if m == nil || m.storeUpdates == nil {
		return
	}
	m.storeUpdates.Record(ctx, ms, otelmetric.WithAttributes(attribute.String("backend", backend), attribute.Bool("failed", failed)))
}
