package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/model"
	"taskflow/internal/repository"

	"github.com/google/uuid"
)

// memDB is an in-memory Transactor. A transaction works on a copy of the
// committed state and swaps it in only when fn succeeds.
type memDB struct {
	mu    sync.Mutex
	state *memState

	writes       atomic.Int64
	batchLookups atomic.Int64
}

type memState struct {
	boards map[uuid.UUID]model.Board
	tasks  map[uuid.UUID]model.Task
	order  []uuid.UUID
	users  map[uuid.UUID]model.User
}

func newMemDB() *memDB {
	return &memDB{state: &memState{
		boards: map[uuid.UUID]model.Board{},
		tasks:  map[uuid.UUID]model.Task{},
		users:  map[uuid.UUID]model.User{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		boards: make(map[uuid.UUID]model.Board, len(s.boards)),
		tasks:  make(map[uuid.UUID]model.Task, len(s.tasks)),
		order:  append([]uuid.UUID(nil), s.order...),
		users:  make(map[uuid.UUID]model.User, len(s.users)),
	}
	for k, v := range s.boards {
		c.boards[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (db *memDB) Repositories() repository.Repositories {
	return db.bind(nil)
}

func (db *memDB) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tx := db.state.clone()
	if err := fn(db.bind(tx)); err != nil {
		return err
	}
	db.state = tx
	return nil
}

func (db *memDB) bind(tx *memState) repository.Repositories {
	r := memRepo{db: db, tx: tx}
	return repository.Repositories{
		Boards: memBoards{r},
		Tasks:  memTasks{r},
		Users:  memUsers{r},
	}
}

func (db *memDB) addUser(email, username string) model.User {
	u := model.User{ID: uuid.New(), Email: email, Username: username}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.users[u.ID] = u
	return u
}

func (db *memDB) task(id uuid.UUID) (model.Task, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.state.tasks[id]
	return t, ok
}

type memRepo struct {
	db *memDB
	tx *memState
}

func (r memRepo) with(fn func(s *memState)) {
	if r.tx != nil {
		fn(r.tx)
		return
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	fn(r.db.state)
}

type memBoards struct{ memRepo }

func (r memBoards) Create(_ context.Context, board *model.Board) error {
	r.db.writes.Add(1)
	r.with(func(s *memState) { s.boards[board.ID] = *board })
	return nil
}

func (r memBoards) GetByID(_ context.Context, id uuid.UUID) (*model.Board, error) {
	var (
		b  model.Board
		ok bool
	)
	r.with(func(s *memState) { b, ok = s.boards[id] })
	if !ok {
		return nil, repository.ErrBoardNotFound
	}
	return &b, nil
}

func (r memBoards) GetOwned(_ context.Context, ownerID uuid.UUID) ([]model.Board, error) {
	var out []model.Board
	r.with(func(s *memState) {
		for _, b := range s.boards {
			if b.OwnerID == ownerID {
				out = append(out, b)
			}
		}
	})
	return out, nil
}

func (r memBoards) Update(_ context.Context, board *model.Board) error {
	r.db.writes.Add(1)
	var ok bool
	r.with(func(s *memState) {
		var b model.Board
		if b, ok = s.boards[board.ID]; ok {
			b.Title = board.Title
			s.boards[board.ID] = b
		}
	})
	if !ok {
		return repository.ErrBoardNotFound
	}
	return nil
}

func (r memBoards) Delete(_ context.Context, id uuid.UUID) error {
	r.db.writes.Add(1)
	var ok bool
	r.with(func(s *memState) {
		if _, ok = s.boards[id]; !ok {
			return
		}
		delete(s.boards, id)
		for tid, t := range s.tasks {
			if t.BoardID == id {
				delete(s.tasks, tid)
			}
		}
	})
	if !ok {
		return repository.ErrBoardNotFound
	}
	return nil
}

type memTasks struct{ memRepo }

func (r memTasks) Create(_ context.Context, task *model.Task) error {
	r.db.writes.Add(1)
	task.CreatedAt = time.Now()
	r.with(func(s *memState) {
		s.tasks[task.ID] = *task
		s.order = append(s.order, task.ID)
	})
	return nil
}

func (r memTasks) GetByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	var (
		t  model.Task
		ok bool
	)
	r.with(func(s *memState) { t, ok = s.tasks[id] })
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return &t, nil
}

func (r memTasks) Update(_ context.Context, task *model.Task) error {
	r.db.writes.Add(1)
	var ok bool
	r.with(func(s *memState) {
		var stored model.Task
		if stored, ok = s.tasks[task.ID]; ok {
			updated := *task
			updated.BoardID = stored.BoardID
			s.tasks[task.ID] = updated
		}
	})
	if !ok {
		return repository.ErrTaskNotFound
	}
	return nil
}

func (r memTasks) FindByBoard(_ context.Context, boardID uuid.UUID, filter repository.TaskFilter) ([]model.Task, error) {
	var out []model.Task
	r.with(func(s *memState) {
		for _, id := range s.order {
			t, ok := s.tasks[id]
			if !ok || t.BoardID != boardID || t.Archived {
				continue
			}
			if filter.Priority != nil && t.Priority != *filter.Priority {
				continue
			}
			if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
				continue
			}
			out = append(out, t)
		}
	})
	return out, nil
}

func (r memTasks) FindDueBetween(_ context.Context, start, end time.Time) ([]model.Task, error) {
	var out []model.Task
	r.with(func(s *memState) {
		for _, id := range s.order {
			t := s.tasks[id]
			if t.Deadline == nil || t.Archived || t.Status == model.StatusDone {
				continue
			}
			if !t.Deadline.Before(start) && t.Deadline.Before(end) {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

type memUsers struct{ memRepo }

func (r memUsers) Create(_ context.Context, user *model.User) error {
	r.db.writes.Add(1)
	r.with(func(s *memState) { s.users[user.ID] = *user })
	return nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	var found *model.User
	r.with(func(s *memState) {
		for _, u := range s.users {
			if u.Email == email {
				u := u
				found = &u
			}
		}
	})
	return found, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.with(func(s *memState) { u, ok = s.users[id] })
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	r.db.batchLookups.Add(1)
	var out []model.User
	r.with(func(s *memState) {
		for _, id := range ids {
			if u, ok := s.users[id]; ok {
				out = append(out, u)
			}
		}
	})
	return out, nil
}

type boardEvent struct {
	boardID uuid.UUID
	event   model.ChangeEvent
}

type userNotification struct {
	email        string
	notification model.Notification
}

type recordingPublisher struct {
	mu            sync.Mutex
	boardEvents   []boardEvent
	notifications []userNotification
}

func (p *recordingPublisher) PublishBoardEvent(boardID uuid.UUID, ev model.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boardEvents = append(p.boardEvents, boardEvent{boardID: boardID, event: ev})
}

func (p *recordingPublisher) PublishUserNotification(email string, n model.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, userNotification{email: email, notification: n})
}

func (p *recordingPublisher) events() []boardEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]boardEvent(nil), p.boardEvents...)
}

func (p *recordingPublisher) notes() []userNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]userNotification(nil), p.notifications...)
}

// spyCache records evictions on top of a real MemoryStore.
type spyCache struct {
	*cache.MemoryStore

	mu         sync.Mutex
	keys       []cache.Key
	namespaces []string
}

func newSpyCache() *spyCache {
	return &spyCache{MemoryStore: cache.NewMemoryStore()}
}

func (c *spyCache) Evict(ctx context.Context, key cache.Key) error {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return c.MemoryStore.Evict(ctx, key)
}

func (c *spyCache) EvictNamespace(ctx context.Context, namespace string) error {
	c.mu.Lock()
	c.namespaces = append(c.namespaces, namespace)
	c.mu.Unlock()
	return c.MemoryStore.EvictNamespace(ctx, namespace)
}

func (c *spyCache) evictions() ([]cache.Key, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cache.Key(nil), c.keys...), append([]string(nil), c.namespaces...)
}
