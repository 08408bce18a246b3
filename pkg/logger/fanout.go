package logger

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler duplicates records to several handlers, typically the
// console handler plus Sentry. A tiny local fanout is carried here instead
// of pulling in a multi-handler dependency for two sinks.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler creates a handler delegating to all of handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled reports whether any delegate handles records at the given level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// WithAttrs returns a fanout over the delegates with the attributes added.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: next}
}

// WithGroup returns a fanout over the delegates with the group appended.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &FanoutHandler{handlers: next}
}

// Handle forwards the record to every delegate that accepts its level.
func (h *FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, record.Level) {
			continue
		}
		if err := next.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
