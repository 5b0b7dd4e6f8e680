package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the fulfillment provider.
//
// The sync engine classifies these into three recovery strategies:
//   - 401/403: skip the tenant for this run (credential problem)
//   - 429: stop paging this entity, let the next run's window overlap recover
//   - 5xx: stop paging this entity, recorded as a non-fatal error
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider returned %d for %s: %s", e.StatusCode, e.Path, e.Body)
	}
	return fmt.Sprintf("provider returned %d for %s", e.StatusCode, e.Path)
}

// IsRateLimited returns true if the error is an HTTP 429 from the provider.
// Uses errors.As to handle wrapped errors.
func IsRateLimited(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsAuthError returns true if the error is an HTTP 401 or 403 from the provider.
// Uses errors.As to handle wrapped errors.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
	}
	return false
}

// IsServerError returns true if the error is an HTTP 5xx from the provider.
// Uses errors.As to handle wrapped errors.
func IsServerError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode >= 500
	}
	return false
}
