package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"boardsync.app/mirror/core/config"
)

// Setup installs the process-wide slog handler. Production logs go
// through the OTel bridge when an endpoint is configured, JSON to stdout
// otherwise; development gets readable text at debug level.
func Setup(cfg config.Config) {
	slog.SetDefault(slog.New(newRootHandler(cfg)))
}

func newRootHandler(cfg config.Config) slog.Handler {
	if cfg.IsProduction() && cfg.OTel.Enabled() {
		return otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
	}
	if cfg.IsProduction() {
		return NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts))
	}
	return NewTraceHandler(slog.NewTextHandler(os.Stdout, opts))
}

// TraceHandler decorates an slog handler with the active span ids and
// the LogFields carried by the record's context.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	r.AddAttrs(GetLogFields(ctx).attrs()...)
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
