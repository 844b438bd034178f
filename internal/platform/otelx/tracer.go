// Package otelx wraps OpenTelemetry span helpers used by the postgres
// repositories: start a span per operation, set attributes from the
// operation's input, and record errors before returning.
package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ironlake-data/catalog"

// Start begins a span named operation under tracerName.
func Start(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, operation)
}

// RecordError marks the span as failed and attaches the error, mirroring
// mopentelemetry.HandleSpanError.
func RecordError(span trace.Span, msg string, err error) {
	if err == nil {
		return
	}

	span.RecordError(err, trace.WithAttributes(attribute.String("error.message", msg)))
	span.SetStatus(codes.Error, msg)
}
