package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for application spans.
const TracerName = "github.com/stocker/backend"

// StartSpan starts an internal span on the global tracer provider.
//
//	ctx, span := telemetry.StartSpan(ctx, "migration.validate_chunk",
//	    attribute.String("migration.entity_type", "deal"))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan starts a span named "{service}.{method}".
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, method), attrs...)
}

// RecordError records err on span and marks the span failed. A nil err is
// ignored.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// EndSpan finishes span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
