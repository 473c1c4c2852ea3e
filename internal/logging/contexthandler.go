package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the per-run attributes (run id and the like) to
// stamp on every record.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and stamps the provider's attributes
// on each record. An attribute is skipped when the record, or a With call on
// the logger, already carries the same top-level key, so a run id passed
// explicitly at a call site is not written twice.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	bound    map[string]struct{} // top-level keys added through WithAttrs
	grouped  bool
}

// NewContextHandler creates a handler that adds the provider's attributes to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.inner.Handle(ctx, r)
	}

	present := make(map[string]struct{}, r.NumAttrs())
	if !h.grouped {
		r.Attrs(func(a slog.Attr) bool {
			present[a.Key] = struct{}{}
			return true
		})
	}
	for _, a := range h.provider() {
		if _, ok := present[a.Key]; ok {
			continue
		}
		if _, ok := h.bound[a.Key]; ok {
			continue
		}
		r.AddAttrs(a)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	if !h.grouped {
		bound = make(map[string]struct{}, len(h.bound)+len(attrs))
		for k := range h.bound {
			bound[k] = struct{}{}
		}
		for _, a := range attrs {
			bound[a.Key] = struct{}{}
		}
	}
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
		bound:    bound,
		grouped:  h.grouped,
	}
}

// WithGroup nests later attributes under name. Keys inside a group no longer
// clash with the provider's top-level ones.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
		bound:    h.bound,
		grouped:  true,
	}
}
