package cache

import (
	"fmt"

	"taskflow/internal/model"

	"github.com/google/uuid"
)

const (
	NamespaceBoards = "boards"
	NamespaceTasks  = "tasks"
)

const none = "none"

// BoardsKey is the board listing of one owner.
func BoardsKey(ownerID uuid.UUID) Key {
	return Key{Namespace: NamespaceBoards, ID: ownerID.String()}
}

// TasksKey is one filtered task listing of a board.
func TasksKey(boardID uuid.UUID, priority *model.TaskPriority, assigneeID *uuid.UUID) Key {
	p, a := none, none
	if priority != nil {
		p = string(*priority)
	}
	if assigneeID != nil {
		a = assigneeID.String()
	}
	return Key{Namespace: NamespaceTasks, ID: fmt.Sprintf("%s:%s:%s", boardID, p, a)}
}
