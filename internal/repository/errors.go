package repository

import (
	"fmt"

	"taskflow/internal/apperr"
)

// Common repository errors. All of them match apperr.ErrNotFound.
var (
	// ErrBoardNotFound is returned when a board is not found
	ErrBoardNotFound = fmt.Errorf("board %w", apperr.ErrNotFound)

	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = fmt.Errorf("task %w", apperr.ErrNotFound)

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)
)
