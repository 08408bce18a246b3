// Package apierrors defines the closed set of error kinds surfaced by the
// library and the classification of pubproxy.com responses into them.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind partitions every failure the library can surface. The kinds are
// disjoint; an error never changes kind while propagating.
type Kind string

const (
	// KindConfiguration marks invalid options detected before any network
	// activity.
	KindConfiguration Kind = "configuration"
	// KindInvalidRequest marks local misuse of the fetch API, such as a
	// non-positive proxy count.
	KindInvalidRequest Kind = "invalid_request"
	// KindQuotaExceeded marks an exhausted daily request quota, whether
	// detected locally or reported by the service.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindRateLimited marks throttling reported by the service despite local
	// pacing, usually another process sharing the same IP.
	KindRateLimited Kind = "rate_limited"
	// KindTransport marks network-level failures reaching the service.
	KindTransport Kind = "transport"
	// KindService marks malformed or error responses from the service.
	KindService Kind = "service"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Error is the concrete error type returned by every operation in the
// library. Kind decides the recovery semantics, Retryable whether an
// immediate retry can possibly help.
type Error struct {
	Kind      Kind
	Message   string
	Severity  Severity
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewConfigurationError reports invalid options before any request is made.
func NewConfigurationError(msg string) *Error {
	return &Error{
		Kind:      KindConfiguration,
		Message:   msg,
		Severity:  SeverityLow,
		Retryable: false,
	}
}

// NewInvalidRequestError reports local misuse of the fetch API.
func NewInvalidRequestError(msg string) *Error {
	return &Error{
		Kind:      KindInvalidRequest,
		Message:   msg,
		Severity:  SeverityLow,
		Retryable: false,
	}
}

// NewQuotaExceededError reports that the daily request quota is exhausted.
// The daily ban is long, so these are never retryable.
func NewQuotaExceededError(msg string) *Error {
	return &Error{
		Kind:      KindQuotaExceeded,
		Message:   msg,
		Severity:  SeverityMedium,
		Retryable: false,
	}
}

// NewRateLimitedError reports throttling by the service despite local pacing.
func NewRateLimitedError(msg string) *Error {
	return &Error{
		Kind:      KindRateLimited,
		Message:   msg,
		Severity:  SeverityMedium,
		Retryable: false,
	}
}

// NewTransportError wraps a network-level failure.
func NewTransportError(cause error) *Error {
	return &Error{
		Kind:      KindTransport,
		Message:   "request to proxy service failed",
		Severity:  SeverityHigh,
		Retryable: true,
		cause:     cause,
	}
}

// NewServiceError reports an error or malformed response from the service.
func NewServiceError(msg string, cause error) *Error {
	return &Error{
		Kind:      KindService,
		Message:   msg,
		Severity:  SeverityMedium,
		Retryable: false,
		cause:     cause,
	}
}

// KindOf returns the Kind of err, or the empty string for errors that did not
// originate in this library.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}

	return ""
}

// IsRetryable reports whether err may succeed on an immediate retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Retryable
	}

	return false
}
