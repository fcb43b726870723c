// Package apperr defines the error taxonomy shared by services and the HTTP
// boundary. Services wrap these sentinels with %w; handlers map them to
// status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDecryption  = errors.New("unable to decrypt value")
	ErrAuth        = errors.New("invalid credentials")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid request")
	ErrConflict    = errors.New("already exists")
	ErrRateLimited = errors.New("too many attempts")
	ErrGateway     = errors.New("integration call failed")
)

// GatewayError describes a failed call to an external integration.
type GatewayError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil && e.Status > 0:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Status)
	}
}

func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// Gateway builds a GatewayError for provider wrapping err.
func Gateway(provider string, err error) error {
	return &GatewayError{Provider: provider, Err: err}
}

// NotFound wraps ErrNotFound with a user-facing subject, e.g. "product not found".
func NotFound(subject string) error {
	return fmt.Errorf("%s %w", subject, ErrNotFound)
}

// Invalid wraps ErrInvalid with a reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, reason)
}

// Status maps an error to the HTTP status code the boundary reports.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
