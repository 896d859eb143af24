package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks request timeouts and connection failures.
	ErrTransport = errors.New("transport error")
	// ErrServer marks HTTP 5xx responses.
	ErrServer = errors.New("server error")
	// ErrBadRequest marks HTTP 400 responses.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidCredentials marks HTTP 401 responses.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden marks HTTP 403 responses.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks HTTP 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrJobTerminal marks a remote job that finished as FAILED or CANCELLED.
	ErrJobTerminal = errors.New("job reached terminal failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the error may succeed on a later attempt.
// Client-side request faults and terminal job states never retry.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrJobTerminal):
		return false
	case errors.Is(err, ErrTransport), errors.Is(err, ErrServer):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
