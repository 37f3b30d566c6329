// Package access decides whether a caller may act on a board or on a task
// through the board that holds it. Only the board owner is ever allowed.
package access

import (
	"context"
	"fmt"

	"taskflow/internal/apperr"
	"taskflow/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BoardLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
}

type TaskLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
}

// Guard resolves a resource to its board and compares the owner with the caller.
// It has no side effects besides logging denials.
type Guard struct {
	boards BoardLookup
	tasks  TaskLookup
	log    logrus.FieldLogger
}

func NewGuard(boards BoardLookup, tasks TaskLookup, log logrus.FieldLogger) *Guard {
	return &Guard{boards: boards, tasks: tasks, log: log}
}

// AuthorizeBoard returns the board when callerID owns it. Missing boards yield
// apperr.ErrNotFound, foreign boards apperr.ErrAccessDenied.
func (g *Guard) AuthorizeBoard(ctx context.Context, boardID, callerID uuid.UUID) (*model.Board, error) {
	board, err := g.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != callerID {
		g.log.WithFields(logrus.Fields{
			"user_id":  callerID,
			"board_id": boardID,
			"owner_id": board.OwnerID,
		}).Warn("access denied")
		return nil, fmt.Errorf("board %s: %w", boardID, apperr.ErrAccessDenied)
	}
	return board, nil
}

// AuthorizeTask resolves the task, then authorizes its board. The loaded task is
// returned alongside so callers do not read it twice.
func (g *Guard) AuthorizeTask(ctx context.Context, taskID, callerID uuid.UUID) (*model.Task, *model.Board, error) {
	task, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	board, err := g.AuthorizeBoard(ctx, task.BoardID, callerID)
	if err != nil {
		return nil, nil, err
	}
	return task, board, nil
}
