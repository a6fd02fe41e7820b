package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Callers wrap these with context via fmt.Errorf("%w: ...")
// and handlers map them to HTTP codes with Status.
var (
	// ErrNotFound is returned when an aggregate identifier cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict is returned when an operation is invalid for the
	// aggregate's current status (resume-when-active, rate-when-undelivered,
	// double-cancel).
	ErrStateConflict = errors.New("state conflict")
	// ErrPermissionDenied is returned when the actor is neither a party to
	// the aggregate nor an administrator.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation is returned on malformed input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration is returned when an aggregate is configured in a way
	// no operation can satisfy (custom frequency without a day count,
	// avoid dates that never converge).
	ErrConfiguration = errors.New("configuration error")
)

// Wrap attaches a human-readable message to a sentinel kind.
func Wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Status maps an error to the HTTP status the route layer should answer with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
