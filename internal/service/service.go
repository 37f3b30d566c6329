// Package service holds the guarded board and task operations.
//
// Every mutation runs in one transaction: authorize, write, commit. Cache
// eviction follows a successful commit and events are published last, so a
// failed delivery never turns a committed write into an error.
package service

import (
	"context"
	"fmt"
	"strings"

	"taskflow/internal/access"
	"taskflow/internal/apperr"
	"taskflow/internal/cache"
	"taskflow/internal/model"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Publisher is the outbound side of the event bus.
type Publisher interface {
	PublishBoardEvent(boardID uuid.UUID, ev model.ChangeEvent)
	PublishUserNotification(email string, n model.Notification)
}

func guardFor(repos repository.Repositories, log logrus.FieldLogger) *access.Guard {
	return access.NewGuard(repos.Boards, repos.Tasks, log)
}

// evict logs failures instead of returning them; the write has already committed.
func evict(ctx context.Context, store cache.Store, log logrus.FieldLogger, key cache.Key) {
	if err := store.Evict(ctx, key); err != nil {
		log.WithError(err).WithField("key", key.String()).Error("cache evict failed")
	}
}

func evictNamespace(ctx context.Context, store cache.Store, log logrus.FieldLogger, namespace string) {
	if err := store.EvictNamespace(ctx, namespace); err != nil {
		log.WithError(err).WithField("namespace", namespace).Error("cache namespace evict failed")
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}
	return title, nil
}
