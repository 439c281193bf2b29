package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "videostats-gateway/internal/usecase"

var usecaseTracer = otel.Tracer(instrumentationName)
var usecaseNoopSpan = trace.SpanFromContext(context.Background())

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, usecaseNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name)
}

// reconcileCounter counts which reconciliation branch produced matchStats.
// It resolves against the global meter provider so it follows whatever
// exporter observability setup installed.
func reconcileCounter() metric.Int64Counter {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"videostats.reconcile.total",
		metric.WithDescription("Normalized video stats records by reconciliation source."),
	)
	if err != nil {
		return nil
	}
	return counter
}
