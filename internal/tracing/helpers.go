package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a pipeline stage. Returns the new context
// and a function to end the span with the stage's error, if any.
//
//	ctx, endSpan := tracing.StartSpan(ctx, "analytics.query")
//	defer func() { endSpan(err) }()
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	tracer := otel.Tracer("insights")
	ctx, span := tracer.Start(ctx, name)
	return ctx, endFunc(span)
}

// StartDBSpan creates a new span for a PostgreSQL operation against the
// authorization store.
func StartDBSpan(ctx context.Context, table, operation string) (context.Context, func(error)) {
	tracer := otel.Tracer("insights/db")

	spanName := operation
	if table != "" {
		spanName = operation + " " + table
	}

	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
		),
	)
	if table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}

	return ctx, endFunc(span)
}

// StartWarehouseSpan creates a new span for a warehouse query.
func StartWarehouseSpan(ctx context.Context) (context.Context, func(error)) {
	tracer := otel.Tracer("insights/warehouse")

	ctx, span := tracer.Start(ctx, "warehouse.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "bigquery"),
		),
	)

	return ctx, endFunc(span)
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
