// Package apperr holds the error taxonomy shared by every layer.
// Callers compare with errors.Is; producers wrap with fmt.Errorf and %w.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a board, task or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when the resource exists but the caller does not own it.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation marks malformed input rejected before reaching the services.
	ErrValidation = errors.New("validation failed")
)
