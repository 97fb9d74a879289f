package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "learnverse"

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceStoreFunction starts a new span for a key-value store operation.
func TraceStoreFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "kvstore", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// TraceProgressFunction starts a new span for a progress ledger or streak function.
func TraceProgressFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "progress", functionName, attributes...)
}

// TraceAttemptFunction starts a new span for a quiz attempt log function.
func TraceAttemptFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "attempts", functionName, attributes...)
}

// TraceBadgeFunction starts a new span for a badge or skill function.
func TraceBadgeFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "badges", functionName, attributes...)
}

// TraceInsightsFunction starts a new span for leaderboard and performance functions.
func TraceInsightsFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "insights", functionName, attributes...)
}

// TraceProfileFunction starts a new span for profile settings, challenges and transfers.
func TraceProfileFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "profile", functionName, attributes...)
}

// TraceQuoteFunction starts a new span for the quote client.
func TraceQuoteFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "quotes", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// AttributeProfileID returns a tracing attribute for a profile id.
func AttributeProfileID(id string) attribute.KeyValue {
	return attribute.String("profile.id", id)
}

// AttributeModuleID returns a tracing attribute for a module id.
func AttributeModuleID(id string) attribute.KeyValue {
	return attribute.String("module.id", id)
}

// AttributeSubject returns a tracing attribute for a subject id.
func AttributeSubject(subject string) attribute.KeyValue {
	return attribute.String("subject.id", subject)
}

// AttributeBadgeID returns a tracing attribute for a badge id.
func AttributeBadgeID(id string) attribute.KeyValue {
	return attribute.String("badge.id", id)
}

// AttributeAttemptNumber returns a tracing attribute for an attempt number.
func AttributeAttemptNumber(n int) attribute.KeyValue {
	return attribute.Int("attempt.number", n)
}

// AttributeStoreKey returns a tracing attribute for a store key or prefix.
func AttributeStoreKey(key string) attribute.KeyValue {
	return attribute.String("kv.key", key)
}

// AttributeStoreBackend returns a tracing attribute for the store backend name.
func AttributeStoreBackend(name string) attribute.KeyValue {
	return attribute.String("kv.backend", name)
}
