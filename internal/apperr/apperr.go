package apperr

import (
	"errors"
	"fmt"
)

// Package apperr defines the error taxonomy shared by all services.
// Services wrap these sentinels with %w; the HTTP layer translates them
// to status codes without inspecting messages.

var (
	// ErrNotFound covers both unknown ids and ids not owned by the actor,
	// so callers cannot probe for the existence of other users' resources.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned for disallowed actions on a resource the
	// actor can see (deleting a root folder, revoking someone else's share).
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned for duplicate names in a scope and duplicate
	// share grants.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed input, including cyclic moves.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned for invalid, expired, or exhausted share
	// links and wrong link passwords.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrFileOperation is returned when the content store fails.
	ErrFileOperation = errors.New("file operation failed")
)

// QuotaExceededError carries the byte counts callers need to render a
// useful message. It matches errors.Is(err, ErrQuotaExceeded).
type QuotaExceededError struct {
	Available int64
	Required  int64
}

// ErrQuotaExceeded is the sentinel target for QuotaExceededError.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: available=%d required=%d", e.Available, e.Required)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// QuotaExceeded builds a QuotaExceededError.
func QuotaExceeded(available, required int64) error {
	return &QuotaExceededError{Available: available, Required: required}
}
