package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TaskFilter narrows a board listing. Nil fields do not filter.
type TaskFilter struct {
	Priority   *model.TaskPriority
	AssigneeID *uuid.UUID
}

type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	FindByBoard(ctx context.Context, boardID uuid.UUID, filter TaskFilter) ([]model.Task, error)
	FindDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error)
}

type TaskRepository struct {
	db *gorm.DB
}

var _ TaskStore = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Board", "Assignee").Create(task).Error
}

// GetByID retrieves a task by its ID, archived or not
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Update writes every mutable column, including zero values, so a nil
// deadline or assignee is persisted as NULL. BoardID is never written.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).
		Model(task).
		Select("Title", "Description", "Status", "Priority", "Deadline", "Archived", "AssigneeID").
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// FindByBoard lists the non-archived tasks of a board.
func (r *TaskRepository) FindByBoard(ctx context.Context, boardID uuid.UUID, filter TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Where("board_id = ? AND archived = ?", boardID, false)
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if err := q.Order("created_at").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindDueBetween returns open, non-archived tasks with a deadline in [start, end).
func (r *TaskRepository) FindDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("deadline >= ? AND deadline < ? AND status <> ? AND archived = ?", start, end, model.StatusDone, false).
		Order("deadline").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
