package apierrors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/pubproxy/pubproxy-go/pkg/metrics"
)

// Handler centralizes logging and Sentry reporting for classified errors.
// It is used by the CLI; library callers that prefer their own reporting can
// ignore it entirely.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

// NewHandler constructs an error handler writing to log, optionally
// forwarding high-severity errors to Sentry.
func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err with its classification and reports it to configured
// sinks. It returns whether the error is retryable.
func (h *Handler) Handle(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		log.LogAttrs(ctx, slog.LevelError, "fetch failed",
			slog.String("kind", string(apiErr.Kind)),
			slog.String("message", apiErr.Message),
			slog.String("severity", string(apiErr.Severity)),
			slog.Bool("retryable", apiErr.Retryable),
		)

		metrics.RecordError(string(apiErr.Kind), string(apiErr.Severity))

		if h.sentryEnabled && apiErr.Severity == SeverityHigh {
			h.sendToSentry(err)
		}

		return apiErr.Retryable
	}

	log.LogAttrs(ctx, slog.LevelError, "unclassified error",
		slog.String("message", err.Error()),
	)

	metrics.RecordError("unknown", string(SeverityHigh))

	if h.sentryEnabled {
		h.sendToSentry(err)
	}

	return false
}

func (h *Handler) sendToSentry(err error) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr != nil {
			scope.SetTag("kind", string(apiErr.Kind))
			scope.SetTag("severity", string(apiErr.Severity))
		}

		sentry.CaptureException(err)
	})
}
