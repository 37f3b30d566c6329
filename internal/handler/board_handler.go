package handler

import (
	"context"
	"net/http"

	"taskflow/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BoardService interface {
	GetAllBoards(ctx context.Context, ownerID uuid.UUID) ([]model.BoardResponse, error)
	CreateBoard(ctx context.Context, title string, ownerID uuid.UUID) (*model.BoardResponse, error)
	UpdateBoard(ctx context.Context, id uuid.UUID, title string, callerID uuid.UUID) (*model.BoardResponse, error)
	DeleteBoard(ctx context.Context, id, callerID uuid.UUID) error
}

type BoardHandler struct {
	boards BoardService
	log    logrus.FieldLogger
}

func NewBoardHandler(boards BoardService, log logrus.FieldLogger) *BoardHandler {
	return &BoardHandler{boards: boards, log: log.WithField("component", "board_handler")}
}

type BoardRequest struct {
	Title string `json:"title" binding:"required"`
}

// GetAll godoc
// @Summary      List the caller's boards
// @Tags         Boards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} model.BoardResponse
// @Router       /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boards, err := h.boards.GetAllBoards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

// Create godoc
// @Summary      Create a board
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BoardRequest true "Board"
// @Success      201 {object} model.BoardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	board, err := h.boards.CreateBoard(c.Request.Context(), req.Title, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, board)
}

// Update godoc
// @Summary      Rename a board
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Param        request body BoardRequest true "Board"
// @Success      200 {object} model.BoardResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	board, err := h.boards.UpdateBoard(c.Request.Context(), boardID, req.Title, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Delete godoc
// @Summary      Delete a board and its tasks
// @Tags         Boards
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.boards.DeleteBoard(c.Request.Context(), boardID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
