package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/cache"
	"taskflow/internal/model"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TaskInput is a full task body used by create and replace.
type TaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    model.TaskPriority
	BoardID     uuid.UUID
	Deadline    *time.Time
}

func (in TaskInput) validate() (TaskInput, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return in, err
	}
	in.Title = title
	if !in.Status.Valid() {
		return in, fmt.Errorf("status %q: %w", in.Status, apperr.ErrValidation)
	}
	if !in.Priority.Valid() {
		return in, fmt.Errorf("priority %q: %w", in.Priority, apperr.ErrValidation)
	}
	return in, nil
}

// TaskPatch carries a partial update. Nil fields leave the stored value as is,
// so a patch can replace a field but never clear it.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	Deadline    *time.Time
}

func (p TaskPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("status %q: %w", *p.Status, apperr.ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("priority %q: %w", *p.Priority, apperr.ErrValidation)
	}
	return nil
}

type TaskService struct {
	store  repository.Transactor
	cache  cache.Store
	events Publisher
	log    logrus.FieldLogger
}

func NewTaskService(store repository.Transactor, c cache.Store, events Publisher, log logrus.FieldLogger) *TaskService {
	return &TaskService{store: store, cache: c, events: events, log: log.WithField("component", "task_service")}
}

// GetTasksByBoard lists the non-archived tasks of a board owned by callerID.
// Authorization runs on every call; only the listing itself is cached.
func (s *TaskService) GetTasksByBoard(ctx context.Context, boardID, callerID uuid.UUID, filter repository.TaskFilter) ([]model.TaskResponse, error) {
	repos := s.store.Repositories()
	if _, err := guardFor(repos, s.log).AuthorizeBoard(ctx, boardID, callerID); err != nil {
		return nil, err
	}

	key := cache.TasksKey(boardID, filter.Priority, filter.AssigneeID)
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]model.TaskResponse, error) {
		s.log.WithFields(logrus.Fields{"board_id": boardID, "user_id": callerID}).Debug("loading tasks")
		tasks, err := repos.Tasks.FindByBoard(ctx, boardID, filter)
		if err != nil {
			return nil, err
		}
		return s.responses(ctx, repos.Users, tasks)
	})
}

func (s *TaskService) GetTask(ctx context.Context, id, callerID uuid.UUID) (*model.TaskResponse, error) {
	repos := s.store.Repositories()
	task, _, err := guardFor(repos, s.log).AuthorizeTask(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, repos.Users, task)
}

func (s *TaskService) CreateTask(ctx context.Context, in TaskInput, callerID uuid.UUID) (*model.TaskResponse, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	var resp *model.TaskResponse
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		board, err := guardFor(repos, s.log).AuthorizeBoard(ctx, in.BoardID, callerID)
		if err != nil {
			return err
		}
		task := &model.Task{
			ID:          uuid.New(),
			BoardID:     board.ID,
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			Deadline:    in.Deadline,
		}
		if err := repos.Tasks.Create(ctx, task); err != nil {
			return err
		}
		resp, err = s.response(ctx, repos.Users, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	evictNamespace(ctx, s.cache, s.log, cache.NamespaceTasks)
	s.log.WithFields(logrus.Fields{"task_id": resp.ID, "title": resp.Title, "board_id": resp.BoardID, "user_id": callerID}).Info("task created")
	s.publish(in.BoardID, model.EventTaskCreated, *resp)
	return resp, nil
}

// UpdateTask replaces every editable field. The board and assignee are kept.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, in TaskInput, callerID uuid.UUID) (*model.TaskResponse, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, callerID, model.EventTaskUpdated, func(task *model.Task) error {
		// Tasks never move between boards; a zero board id means "keep".
		if in.BoardID != uuid.Nil && in.BoardID != task.BoardID {
			return fmt.Errorf("task %s belongs to another board: %w", id, apperr.ErrValidation)
		}
		if task.Status != in.Status {
			s.log.WithFields(logrus.Fields{"task_id": id, "from": task.Status, "to": in.Status, "user_id": callerID}).Info("task status changed")
		}
		task.Title = in.Title
		task.Description = in.Description
		task.Status = in.Status
		task.Priority = in.Priority
		task.Deadline = in.Deadline
		return nil
	})
}

func (s *TaskService) PatchTask(ctx context.Context, id uuid.UUID, p TaskPatch, callerID uuid.UUID) (*model.TaskResponse, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, callerID, model.EventTaskUpdated, func(task *model.Task) error {
		if p.Title != nil {
			task.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			task.Description = *p.Description
		}
		if p.Status != nil {
			if task.Status != *p.Status {
				s.log.WithFields(logrus.Fields{"task_id": id, "from": task.Status, "to": *p.Status, "user_id": callerID}).Info("task status changed (patch)")
			}
			task.Status = *p.Status
		}
		if p.Priority != nil {
			task.Priority = *p.Priority
		}
		if p.Deadline != nil {
			task.Deadline = p.Deadline
		}
		return nil
	})
}

// DeleteTask archives the task. The row is kept.
func (s *TaskService) DeleteTask(ctx context.Context, id, callerID uuid.UUID) error {
	_, err := s.mutate(ctx, id, callerID, model.EventTaskDeleted, func(task *model.Task) error {
		task.Archived = true
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"task_id": id, "user_id": callerID}).Info("task archived")
	return nil
}

// AssignTask sets the assignee, or clears it when assigneeID is nil. Only a
// real assignment notifies the assignee.
func (s *TaskService) AssignTask(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID, callerID uuid.UUID) (*model.TaskResponse, error) {
	var (
		resp     *model.TaskResponse
		boardID  uuid.UUID
		assignee *model.User
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		task, _, err := guardFor(repos, s.log).AuthorizeTask(ctx, id, callerID)
		if err != nil {
			return err
		}
		if assigneeID != nil {
			u, err := repos.Users.GetByID(ctx, *assigneeID)
			if err != nil {
				return err
			}
			assignee = u
			task.AssigneeID = &u.ID
		} else {
			task.AssigneeID = nil
		}
		if err := repos.Tasks.Update(ctx, task); err != nil {
			return err
		}
		boardID = task.BoardID
		r := task.Response(assignee)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	evictNamespace(ctx, s.cache, s.log, cache.NamespaceTasks)

	fields := logrus.Fields{"task_id": id, "user_id": callerID}
	if assignee != nil {
		s.log.WithFields(fields).WithField("assignee_id", assignee.ID).Info("task assigned")
		s.events.PublishUserNotification(assignee.Email, model.Notification{
			Message: "You have been assigned to a task: " + resp.Title,
			TaskID:  resp.ID,
			BoardID: resp.BoardID,
			Kind:    model.NotificationAssignment,
		})
	} else {
		s.log.WithFields(fields).Info("task unassigned")
	}
	s.publish(boardID, model.EventTaskUpdated, *resp)
	return resp, nil
}

// mutate is the authorize, modify, write, evict, publish cycle shared by the
// task writes that keep the assignee untouched.
func (s *TaskService) mutate(ctx context.Context, id, callerID uuid.UUID, kind model.EventType, apply func(*model.Task) error) (*model.TaskResponse, error) {
	var (
		resp    *model.TaskResponse
		boardID uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		task, _, err := guardFor(repos, s.log).AuthorizeTask(ctx, id, callerID)
		if err != nil {
			return err
		}
		if err := apply(task); err != nil {
			return err
		}
		if err := repos.Tasks.Update(ctx, task); err != nil {
			return err
		}
		boardID = task.BoardID
		resp, err = s.response(ctx, repos.Users, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	evictNamespace(ctx, s.cache, s.log, cache.NamespaceTasks)
	s.publish(boardID, kind, *resp)
	return resp, nil
}

func (s *TaskService) publish(boardID uuid.UUID, kind model.EventType, task model.TaskResponse) {
	s.log.WithFields(logrus.Fields{"board_id": boardID, "event": kind}).Debug("publishing board event")
	s.events.PublishBoardEvent(boardID, model.ChangeEvent{
		Type:    kind,
		BoardID: boardID.String(),
		Task:    task,
	})
}

func (s *TaskService) response(ctx context.Context, users repository.UserStore, task *model.Task) (*model.TaskResponse, error) {
	var assignee *model.User
	if task.AssigneeID != nil {
		u, err := users.GetByID(ctx, *task.AssigneeID)
		if err != nil {
			return nil, err
		}
		assignee = u
	}
	resp := task.Response(assignee)
	return &resp, nil
}

// responses maps a listing with one batched assignee lookup.
func (s *TaskService) responses(ctx context.Context, users repository.UserStore, tasks []model.Task) ([]model.TaskResponse, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, t := range tasks {
		if t.AssigneeID == nil {
			continue
		}
		if _, ok := seen[*t.AssigneeID]; !ok {
			seen[*t.AssigneeID] = struct{}{}
			ids = append(ids, *t.AssigneeID)
		}
	}

	byID := make(map[uuid.UUID]*model.User, len(ids))
	if len(ids) > 0 {
		found, err := users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
	}

	out := make([]model.TaskResponse, 0, len(tasks))
	for i := range tasks {
		var assignee *model.User
		if tasks[i].AssigneeID != nil {
			assignee = byID[*tasks[i].AssigneeID]
		}
		out = append(out, tasks[i].Response(assignee))
	}
	return out, nil
}
