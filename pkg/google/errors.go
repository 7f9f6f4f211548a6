package google

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Operation names used in errors.
const (
	OpGeocode      = "geocode"
	OpNearbySearch = "nearby search"
	OpPlaceDetails = "place details"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = eris.New("google: api key not configured")

// StatusError is a non-success response, either an API status in the JSON
// body or a non-2xx HTTP status.
type StatusError struct {
	Op         string
	Status     string
	HTTPStatus int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		if e.Message != "" {
			return fmt.Sprintf("google: %s returned %s: %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("google: %s returned %s", e.Op, e.Status)
	}
	return fmt.Sprintf("google: %s unexpected status %d: %s", e.Op, e.HTTPStatus, e.Message)
}

// RateLimited reports whether the response signals quota exhaustion.
func (e *StatusError) RateLimited() bool {
	return e.Status == StatusOverQueryLimit || e.HTTPStatus == http.StatusTooManyRequests
}

// StatusDetail returns the API status, or the HTTP status code when the body
// carried none.
func (e *StatusError) StatusDetail() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("HTTP_%d", e.HTTPStatus)
}

// TimeoutError is returned when a call exceeds the client timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("google: %s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
