package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task belongs to exactly one board. BoardID is fixed at creation and
// Archived only ever moves from false to true.
type Task struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	Title       string       `gorm:"not null"`
	Description string
	Status      TaskStatus   `gorm:"type:varchar(20);not null"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null"`
	Deadline    *time.Time   `gorm:"index"`
	Archived    bool         `gorm:"not null;default:false"`
	AssigneeID  *uuid.UUID   `gorm:"type:uuid;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Board    Board `gorm:"foreignKey:BoardID"`
	Assignee *User `gorm:"foreignKey:AssigneeID"`
}

// AssigneeResponse is the public view of a task's assignee.
type AssigneeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TaskResponse is the representation returned to callers and carried by change events.
type TaskResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      TaskStatus        `json:"status"`
	Priority    TaskPriority      `json:"priority"`
	BoardID     string            `json:"boardId"`
	Deadline    *time.Time        `json:"deadline,omitempty"`
	Archived    bool              `json:"archived"`
	Assignee    *AssigneeResponse `json:"assignee"`
}

// Response maps the task; assignee may be nil even when AssigneeID is set
// if the caller did not resolve it.
func (t *Task) Response(assignee *User) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		BoardID:     t.BoardID.String(),
		Deadline:    t.Deadline,
		Archived:    t.Archived,
	}
	if assignee != nil {
		resp.Assignee = &AssigneeResponse{
			ID:       assignee.ID.String(),
			Username: assignee.Username,
			Email:    assignee.Email,
		}
	}
	return resp
}
