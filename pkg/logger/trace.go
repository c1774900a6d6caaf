package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	tracectx "github.com/arcentrix/launchpad/pkg/trace/context"
)

// logTrace adds trace_id/span_id to every record that carries a valid span.
type logTrace struct {
	next slog.Handler
}

func newLogTrace(next slog.Handler) slog.Handler {
	return &logTrace{next: next}
}

func (h *logTrace) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *logTrace) Handle(ctx context.Context, record slog.Record) error {
	if sc := spanContextOf(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *logTrace) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logTrace{next: h.next.WithAttrs(attrs)}
}

func (h *logTrace) WithGroup(name string) slog.Handler {
	return &logTrace{next: h.next.WithGroup(name)}
}

// spanContextOf prefers the span in ctx and falls back to the one bound to
// the current goroutine.
func spanContextOf(ctx context.Context) trace.SpanContext {
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			return sc
		}
	}
	if fallback := tracectx.GetContext(); fallback != nil {
		return trace.SpanContextFromContext(fallback)
	}
	return trace.SpanContext{}
}
