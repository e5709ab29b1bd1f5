// Package apm wires OpenTelemetry tracing: exporter selection and a thin span API.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
}

type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	End(options ...trace.SpanEndOption)
	NoticeError(err error)
	SpanContext() trace.SpanContext
}

type openTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a tracer backed by the global provider.
func NewTracer(name string) Tracer {
	return &openTracer{
		otel.Tracer(name),
	}
}

func (t *openTracer) StartSpanFromContext(
	ctx context.Context, name string, opts ...trace.SpanStartOption,
) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &traceSpan{span}
}

func (t *openTracer) SpanFromContext(ctx context.Context) Span {
	return &traceSpan{trace.SpanFromContext(ctx)}
}

type traceSpan struct {
	span trace.Span
}

func (t *traceSpan) SetAttributes(values ...attribute.KeyValue) {
	t.span.SetAttributes(values...)
}

func (t *traceSpan) End(options ...trace.SpanEndOption) {
	t.span.End(options...)
}

// NoticeError records err and marks the span failed.
func (t *traceSpan) NoticeError(err error) {
	t.span.RecordError(err)
	t.span.SetStatus(codes.Error, err.Error())
}

func (t *traceSpan) SpanContext() trace.SpanContext {
	return t.span.SpanContext()
}
