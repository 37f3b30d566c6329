package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BoardAuthorizer interface {
	AuthorizeBoard(ctx context.Context, boardID, callerID uuid.UUID) (*model.Board, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// StreamHandler relays bus channels to clients as server-sent events.
type StreamHandler struct {
	sub       events.Subscriber
	boards    BoardAuthorizer
	users     UserLookup
	keepAlive time.Duration
	log       logrus.FieldLogger
}

func NewStreamHandler(sub events.Subscriber, boards BoardAuthorizer, users UserLookup, log logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{
		sub:       sub,
		boards:    boards,
		users:     users,
		keepAlive: 15 * time.Second,
		log:       log.WithField("component", "stream_handler"),
	}
}

// BoardEvents godoc
// @Summary      Stream change events of a board
// @Description  Server-sent events carrying TASK_CREATED, TASK_UPDATED and TASK_DELETED. Owner only.
// @Tags         Events
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} model.ChangeEvent
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id}/events [get]
func (h *StreamHandler) BoardEvents(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.boards.AuthorizeBoard(c.Request.Context(), boardID, userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.relay(c, events.BoardChannel(boardID))
}

// Notifications godoc
// @Summary      Stream the caller's private notifications
// @Tags         Events
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200 {object} model.Notification
// @Router       /notifications/stream [get]
func (h *StreamHandler) Notifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.relay(c, events.UserChannel(user.Email))
}

func (h *StreamHandler) relay(c *gin.Context, channel string) {
	ctx := c.Request.Context()
	msgs, cancel, err := h.sub.Subscribe(ctx, channel)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer cancel()

	log := h.log.WithField("channel", channel)
	log.Debug("stream opened")
	defer log.Debug("stream closed")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		case <-ctx.Done():
			return false
		}
	})
}
