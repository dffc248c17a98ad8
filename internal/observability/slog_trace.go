package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/akbidlab/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// TraceHandler wraps another handler and adds request correlation read from
// the context: trace_id and span_id of the active span, the client session
// id and the id of the logged-in user.
type TraceHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *TraceHandler {
	return &TraceHandler{next: next}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		r.AddAttrs(correlation(ctx)...)
	}
	return h.next.Handle(ctx, r)
}

func correlation(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if sid, ok := actorctx.SessionIDFrom(ctx); ok {
		attrs = append(attrs, slog.String("session_id", sid))
	}
	if uid, ok := actorctx.UserIDFrom(ctx); ok {
		attrs = append(attrs, slog.String("actor_user_id", uid))
	}
	return attrs
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name)}
}
