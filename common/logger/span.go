package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "boardsync.app/mirror"

// Span couples an OTel span with the context that carries it.
type Span struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan opens a span under the current trace context.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *Span {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)
	return &Span{ctx: ctx, span: span}
}

// StartLinkedSpan opens a span linked to a trace id that crossed a
// process boundary, such as one carried on a queue message. A missing
// or malformed id falls back to a plain span.
func StartLinkedSpan(ctx context.Context, traceIDHex, name string, opts ...trace.SpanStartOption) *Span {
	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return StartSpan(ctx, name, opts...)
	}

	remote := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	opts = append(opts, trace.WithLinks(trace.Link{SpanContext: remote}))
	ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
	return StartSpan(ctx, name, opts...)
}

// Context returns the context carrying the span.
func (s *Span) Context() context.Context { return s.ctx }

// End completes the span.
func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}

// RecordError records err on the span. Nil errors are ignored.
func (s *Span) RecordError(err error) {
	if s.span != nil && err != nil {
		s.span.RecordError(err)
	}
}
