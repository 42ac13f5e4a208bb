package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors shared by the service, the web layer and the API client.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidTarget  = errors.New("invalid target URL")
	ErrInvalidState   = errors.New("invalid state for operation")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnsupported    = errors.New("unsupported")
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError represents a non-2xx response from the product API
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto the sentinel errors so callers can
// use errors.Is without caring where the error came from.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrInvalidState
	case http.StatusNotImplemented:
		return ErrUnsupported
	case http.StatusBadRequest:
		return ErrInvalidRequest
	}
	return nil
}

// NewAPIError creates a new APIError. retryAfterHeader is the raw Retry-After
// value, in seconds, and may be empty.
func NewAPIError(statusCode int, message string, retryAfterHeader string) *APIError {
	e := &APIError{StatusCode: statusCode, Message: message}
	if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

// IsUnauthorized reports whether err is, or wraps, an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusFromError picks the HTTP status code the web layer answers with.
func StatusFromError(err error) int {
	var apiErr *APIError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
