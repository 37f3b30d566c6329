package service

import (
	"context"

	"taskflow/internal/cache"
	"taskflow/internal/model"
	"taskflow/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BoardService struct {
	store repository.Transactor
	cache cache.Store
	log   logrus.FieldLogger
}

func NewBoardService(store repository.Transactor, c cache.Store, log logrus.FieldLogger) *BoardService {
	return &BoardService{store: store, cache: c, log: log.WithField("component", "board_service")}
}

// GetAllBoards lists the boards owned by ownerID through the board cache.
func (s *BoardService) GetAllBoards(ctx context.Context, ownerID uuid.UUID) ([]model.BoardResponse, error) {
	return cache.Fetch(ctx, s.cache, cache.BoardsKey(ownerID), func(ctx context.Context) ([]model.BoardResponse, error) {
		s.log.WithField("user_id", ownerID).Debug("loading boards")
		boards, err := s.store.Repositories().Boards.GetOwned(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		out := make([]model.BoardResponse, 0, len(boards))
		for i := range boards {
			out = append(out, boards[i].Response())
		}
		return out, nil
	})
}

func (s *BoardService) CreateBoard(ctx context.Context, title string, ownerID uuid.UUID) (*model.BoardResponse, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	board := &model.Board{ID: uuid.New(), Title: title, OwnerID: ownerID}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Boards.Create(ctx, board)
	})
	if err != nil {
		return nil, err
	}

	evict(ctx, s.cache, s.log, cache.BoardsKey(ownerID))
	s.log.WithFields(logrus.Fields{"board_id": board.ID, "title": board.Title, "user_id": ownerID}).Info("board created")

	resp := board.Response()
	return &resp, nil
}

// UpdateBoard renames a board owned by callerID.
func (s *BoardService) UpdateBoard(ctx context.Context, id uuid.UUID, title string, callerID uuid.UUID) (*model.BoardResponse, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	var board *model.Board
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		b, err := guardFor(repos, s.log).AuthorizeBoard(ctx, id, callerID)
		if err != nil {
			return err
		}
		if b.Title != title {
			s.log.WithFields(logrus.Fields{"board_id": id, "from": b.Title, "to": title, "user_id": callerID}).Info("board title changed")
		}
		b.Title = title
		board = b
		return repos.Boards.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	evict(ctx, s.cache, s.log, cache.BoardsKey(board.OwnerID))

	resp := board.Response()
	return &resp, nil
}

// DeleteBoard removes the board and its tasks. Task listings are flushed as well.
func (s *BoardService) DeleteBoard(ctx context.Context, id, callerID uuid.UUID) error {
	var ownerID uuid.UUID
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		b, err := guardFor(repos, s.log).AuthorizeBoard(ctx, id, callerID)
		if err != nil {
			return err
		}
		ownerID = b.OwnerID
		return repos.Boards.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	evict(ctx, s.cache, s.log, cache.BoardsKey(ownerID))
	evictNamespace(ctx, s.cache, s.log, cache.NamespaceTasks)
	s.log.WithFields(logrus.Fields{"board_id": id, "user_id": callerID}).Info("board deleted")
	return nil
}
