package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWith returns a copy of ctx carrying the given key/value pairs. Loggers
// built by New add them to every record logged with that context.
// Pairs follow the slog.Logger.With convention.
func ContextWith(ctx context.Context, args ...any) context.Context {
	attrs := argsToAttrs(args)
	if len(attrs) == 0 {
		return ctx
	}
	prev := attrsFromContext(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, contextKey{}, merged)
}

// AttrsFromContext returns the attributes stored with ContextWith.
func AttrsFromContext(ctx context.Context) []slog.Attr {
	prev := attrsFromContext(ctx)
	out := make([]slog.Attr, len(prev))
	copy(out, prev)
	return out
}

func attrsFromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(contextKey{}).([]slog.Attr)
	return attrs
}

// argsToAttrs converts alternating key/value arguments into attributes.
func argsToAttrs(args []any) []slog.Attr {
	r := slog.Record{}
	r.Add(args...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

// ContextHandler wraps an slog.Handler and adds the context attributes to each record.
type ContextHandler struct {
	underlying slog.Handler
}

// NewContextHandler wraps underlying.
func NewContextHandler(underlying slog.Handler) *ContextHandler {
	return &ContextHandler{underlying: underlying}
}

// Enabled reports whether the underlying handler handles level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.underlying.Enabled(ctx, level)
}

// Handle adds the context attributes and passes the record on.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := attrsFromContext(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs must return a ContextHandler so context attributes survive .With() chains.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{underlying: h.underlying.WithAttrs(attrs)}
}

// WithGroup must return a ContextHandler so context attributes survive .WithGroup() chains.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{underlying: h.underlying.WithGroup(name)}
}
