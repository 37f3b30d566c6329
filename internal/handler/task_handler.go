package handler

import (
	"context"
	"net/http"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TaskService interface {
	GetTasksByBoard(ctx context.Context, boardID, callerID uuid.UUID, filter repository.TaskFilter) ([]model.TaskResponse, error)
	GetTask(ctx context.Context, id, callerID uuid.UUID) (*model.TaskResponse, error)
	CreateTask(ctx context.Context, in service.TaskInput, callerID uuid.UUID) (*model.TaskResponse, error)
	UpdateTask(ctx context.Context, id uuid.UUID, in service.TaskInput, callerID uuid.UUID) (*model.TaskResponse, error)
	PatchTask(ctx context.Context, id uuid.UUID, p service.TaskPatch, callerID uuid.UUID) (*model.TaskResponse, error)
	DeleteTask(ctx context.Context, id, callerID uuid.UUID) error
	AssignTask(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID, callerID uuid.UUID) (*model.TaskResponse, error)
}

type TaskHandler struct {
	tasks TaskService
	log   logrus.FieldLogger
}

func NewTaskHandler(tasks TaskService, log logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log.WithField("component", "task_handler")}
}

// TaskRequest is the full task body for create and replace.
type TaskRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Status      model.TaskStatus   `json:"status" binding:"required"`
	Priority    model.TaskPriority `json:"priority" binding:"required"`
	BoardID     string             `json:"boardId" binding:"required,uuid"`
	Deadline    *time.Time         `json:"deadline"`
}

// TaskPatchRequest: отсутствующие или null поля не меняются.
type TaskPatchRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *model.TaskStatus   `json:"status"`
	Priority    *model.TaskPriority `json:"priority"`
	Deadline    *time.Time          `json:"deadline"`
}

func (r TaskRequest) input() service.TaskInput {
	return service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		BoardID:     uuid.MustParse(r.BoardID),
		Deadline:    r.Deadline,
	}
}

// GetByBoard godoc
// @Summary      List the tasks of a board
// @Description  Archived tasks are never listed. Filters are optional.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        boardId    query string true  "Board ID"
// @Param        priority   query string false "LOW, MEDIUM or HIGH"
// @Param        assigneeId query string false "Assignee user ID"
// @Success      200 {array} model.TaskResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) GetByBoard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Query("boardId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid boardId format"})
		return
	}

	var filter repository.TaskFilter
	if p := c.Query("priority"); p != "" {
		priority := model.TaskPriority(p)
		if !priority.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid priority"})
			return
		}
		filter.Priority = &priority
	}
	if a := c.Query("assigneeId"); a != "" {
		assigneeID, err := uuid.Parse(a)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid assigneeId format"})
			return
		}
		filter.AssigneeID = &assigneeID
	}

	tasks, err := h.tasks.GetTasksByBoard(c.Request.Context(), boardID, userID, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetByID godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} model.TaskResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Create godoc
// @Summary      Create a task
// @Description  Only the board owner may add tasks.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body TaskRequest true "Task"
// @Success      201 {object} model.TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), req.input(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update godoc
// @Summary      Replace a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body TaskRequest true "Task"
// @Success      200 {object} model.TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), taskID, req.input(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Patch godoc
// @Summary      Partially update a task
// @Description  Omitted or null fields keep their stored value.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body TaskPatchRequest true "Fields to change"
// @Success      200 {object} model.TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Patch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req TaskPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	task, err := h.tasks.PatchTask(c.Request.Context(), taskID, service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	}, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary      Archive a task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Assign godoc
// @Summary      Assign or unassign a task
// @Description  Without userId the current assignee is removed.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string true  "Task ID"
// @Param        userId query string false "Assignee user ID"
// @Success      200 {object} model.TaskResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id}/assign [patch]
func (h *TaskHandler) Assign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var assigneeID *uuid.UUID
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid userId format"})
			return
		}
		assigneeID = &id
	}

	task, err := h.tasks.AssignTask(c.Request.Context(), taskID, assigneeID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
