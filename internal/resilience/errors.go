package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure surfaced by an analysis.
type Kind string

const (
	// KindInvalidInput is a request that failed validation before any upstream call.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindAddressNotFound means the geocoder returned no usable result.
	KindAddressNotFound Kind = "ADDRESS_NOT_FOUND"
	// KindRateLimited means the upstream signalled quota exhaustion.
	KindRateLimited Kind = "RATE_LIMIT"
	// KindUpstreamTimeout means a single upstream call exceeded its bound.
	KindUpstreamTimeout Kind = "TIMEOUT"
	// KindUpstreamError covers every other non-success upstream status.
	KindUpstreamError Kind = "PLACES_UPSTREAM_ERROR"
	// KindInsightGeneration is absorbed by the insight fallback and never
	// reaches a caller.
	KindInsightGeneration Kind = "INSIGHT_GENERATION"
	// KindInternal is anything unclassified.
	KindInternal Kind = "INTERNAL_ERROR"
)

// Error is a classified failure. Upstream, Status and Timeout are detail
// fields that are only set for the kinds they apply to.
type Error struct {
	Kind     Kind
	Message  string
	Upstream string
	Status   string
	Timeout  time.Duration
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != "" {
		msg = fmt.Sprintf("%s (status %s)", msg, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details returns the structured detail fields for an error body.
func (e *Error) Details() map[string]any {
	d := map[string]any{}
	if e.Upstream != "" {
		d["upstream"] = e.Upstream
	}
	if e.Status != "" {
		d["status"] = e.Status
	}
	if e.Timeout > 0 {
		d["timeoutMs"] = e.Timeout.Milliseconds()
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

// InvalidInput builds a validation failure.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// AddressNotFound builds a location resolution failure.
func AddressNotFound(msg string) *Error {
	return &Error{Kind: KindAddressNotFound, Message: msg}
}

// RateLimited builds a quota failure for the named upstream.
func RateLimited(upstream, status string) *Error {
	return &Error{Kind: KindRateLimited, Message: upstream + " rate limit exceeded", Upstream: upstream, Status: status}
}

// UpstreamTimeout builds a timeout failure naming the upstream and its bound.
func UpstreamTimeout(upstream string, bound time.Duration, err error) *Error {
	return &Error{
		Kind:     KindUpstreamTimeout,
		Message:  fmt.Sprintf("%s timed out after %s", upstream, bound),
		Upstream: upstream,
		Timeout:  bound,
		Err:      err,
	}
}

// UpstreamError builds a generic upstream failure carrying the status detail.
func UpstreamError(upstream, status, msg string, err error) *Error {
	if msg == "" {
		msg = upstream + " request failed"
	}
	return &Error{Kind: KindUpstreamError, Message: msg, Upstream: upstream, Status: status, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindInternal when none is
// attached. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is an upstream failure that says something
// about upstream health (quota, timeout, bad status). Caller mistakes such
// as an unknown address are not transient.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUpstreamTimeout, KindUpstreamError:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a failure kind to the status code a transport layer
// should answer with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidInput, KindAddressNotFound:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
