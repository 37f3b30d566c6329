package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/cache"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	db     *memDB
	cache  *spyCache
	events *recordingPublisher
	boards *service.BoardService
	tasks  *service.TaskService
	owner  uuid.UUID
	board  uuid.UUID
}

func setupTaskService(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		db:     newMemDB(),
		cache:  newSpyCache(),
		events: &recordingPublisher{},
		owner:  uuid.New(),
	}
	log := logger.Discard()
	f.boards = service.NewBoardService(f.db, f.cache, log)
	f.tasks = service.NewTaskService(f.db, f.cache, f.events, log)

	board, err := f.boards.CreateBoard(context.Background(), "Project X", f.owner)
	require.NoError(t, err)
	f.board = uuid.MustParse(board.ID)
	return f
}

func (f *taskFixture) createTask(t *testing.T, title string, priority model.TaskPriority) model.TaskResponse {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), service.TaskInput{
		Title:    title,
		Status:   model.StatusTodo,
		Priority: priority,
		BoardID:  f.board,
	}, f.owner)
	require.NoError(t, err)
	return *task
}

func ptr[T any](v T) *T { return &v }

func TestCreateTask_ProjectXScenario(t *testing.T) {
	// Arrange
	db := newMemDB()
	c := newSpyCache()
	events := &recordingPublisher{}
	boards := service.NewBoardService(db, c, logger.Discard())
	tasks := service.NewTaskService(db, c, events, logger.Discard())
	ctx := context.Background()
	userA := uuid.New()

	listed, err := boards.GetAllBoards(ctx, userA)
	require.NoError(t, err)
	require.Empty(t, listed)

	// Act
	board, err := boards.CreateBoard(ctx, "Project X", userA)
	require.NoError(t, err)
	boardID := uuid.MustParse(board.ID)

	task, err := tasks.CreateTask(ctx, service.TaskInput{
		Title:    "T1",
		Status:   model.StatusTodo,
		Priority: model.PriorityHigh,
		BoardID:  boardID,
	}, userA)

	// Assert
	require.NoError(t, err)

	stored, ok := db.task(uuid.MustParse(task.ID))
	require.True(t, ok)
	assert.Equal(t, boardID, stored.BoardID)

	published := events.events()
	require.Len(t, published, 1)
	assert.Equal(t, boardID, published[0].boardID)
	assert.Equal(t, model.EventTaskCreated, published[0].event.Type)
	assert.Equal(t, board.ID, published[0].event.BoardID)
	assert.Equal(t, "T1", published[0].event.Task.Title)
	assert.Equal(t, model.PriorityHigh, published[0].event.Task.Priority)

	listed, err = boards.GetAllBoards(ctx, userA)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Project X", listed[0].Title)
}

func TestCreateTask_MissingBoard(t *testing.T) {
	f := setupTaskService(t)
	writes := f.db.writes.Load()

	_, err := f.tasks.CreateTask(context.Background(), service.TaskInput{
		Title:    "Orphan",
		Status:   model.StatusTodo,
		Priority: model.PriorityLow,
		BoardID:  uuid.New(),
	}, f.owner)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, writes, f.db.writes.Load())
	assert.Empty(t, f.events.events())
}

func TestCreateTask_ForeignBoard(t *testing.T) {
	f := setupTaskService(t)
	writes := f.db.writes.Load()

	_, err := f.tasks.CreateTask(context.Background(), service.TaskInput{
		Title:    "Intruder",
		Status:   model.StatusTodo,
		Priority: model.PriorityLow,
		BoardID:  f.board,
	}, uuid.New())

	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
	assert.Equal(t, writes, f.db.writes.Load())
	assert.Empty(t, f.events.events())
	_, namespaces := f.cache.evictions()
	assert.Empty(t, namespaces)
}

func TestCreateTask_InvalidInput(t *testing.T) {
	f := setupTaskService(t)

	_, err := f.tasks.CreateTask(context.Background(), service.TaskInput{
		Title:    "Bad",
		Status:   "LATER",
		Priority: model.PriorityLow,
		BoardID:  f.board,
	}, f.owner)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.events.events())
}

func TestTaskWrite_FlushesEveryTaskListing(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	task := f.createTask(t, "T1", model.PriorityHigh)

	other, err := f.boards.CreateBoard(ctx, "Other", f.owner)
	require.NoError(t, err)
	otherID := uuid.MustParse(other.ID)

	_, err = f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	_, err = f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{Priority: ptr(model.PriorityHigh)})
	require.NoError(t, err)
	_, err = f.tasks.GetTasksByBoard(ctx, otherID, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, f.cache.Len(cache.NamespaceTasks))

	// Act
	_, err = f.tasks.PatchTask(ctx, uuid.MustParse(task.ID), service.TaskPatch{Title: ptr("T1 renamed")}, f.owner)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Len(cache.NamespaceTasks))

	listed, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "T1 renamed", listed[0].Title)
}

func TestUpdateTask_FullReplace(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	task := f.createTask(t, "T1", model.PriorityLow)
	deadline := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)

	// Act
	updated, err := f.tasks.UpdateTask(ctx, uuid.MustParse(task.ID), service.TaskInput{
		Title:    "T1 v2",
		Status:   model.StatusInProgress,
		Priority: model.PriorityMedium,
		BoardID:  f.board,
		Deadline: &deadline,
	}, f.owner)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "T1 v2", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.Equal(t, model.PriorityMedium, updated.Priority)
	assert.Equal(t, f.board.String(), updated.BoardID)
	require.NotNil(t, updated.Deadline)
	assert.True(t, deadline.Equal(*updated.Deadline))

	published := f.events.events()
	require.Len(t, published, 2)
	assert.Equal(t, model.EventTaskUpdated, published[1].event.Type)
	assert.Equal(t, "T1 v2", published[1].event.Task.Title)
}

func TestUpdateTask_RejectsBoardChange(t *testing.T) {
	f := setupTaskService(t)
	ctx := context.Background()
	task := f.createTask(t, "T1", model.PriorityLow)
	writes := f.db.writes.Load()

	_, err := f.tasks.UpdateTask(ctx, uuid.MustParse(task.ID), service.TaskInput{
		Title:    "Moved",
		Status:   model.StatusTodo,
		Priority: model.PriorityLow,
		BoardID:  uuid.New(),
	}, f.owner)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, writes, f.db.writes.Load())
	assert.Len(t, f.events.events(), 1)

	got, err := f.tasks.GetTask(ctx, uuid.MustParse(task.ID), f.owner)
	require.NoError(t, err)
	assert.Equal(t, "T1", got.Title)
	assert.Equal(t, f.board.String(), got.BoardID)
}

func TestUpdateTask_NotFound(t *testing.T) {
	f := setupTaskService(t)
	writes := f.db.writes.Load()

	_, err := f.tasks.UpdateTask(context.Background(), uuid.New(), service.TaskInput{
		Title:    "Ghost",
		Status:   model.StatusTodo,
		Priority: model.PriorityLow,
	}, f.owner)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, writes, f.db.writes.Load())
	assert.Empty(t, f.events.events())
}

func TestPatchTask_EmptyPatchLeavesTaskUnchanged(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	task := f.createTask(t, "T1", model.PriorityHigh)
	before, ok := f.db.task(uuid.MustParse(task.ID))
	require.True(t, ok)

	// Act
	patched, err := f.tasks.PatchTask(ctx, uuid.MustParse(task.ID), service.TaskPatch{}, f.owner)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, task, *patched)

	after, ok := f.db.task(uuid.MustParse(task.ID))
	require.True(t, ok)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Priority, after.Priority)
	assert.Equal(t, before.Deadline, after.Deadline)
	assert.Equal(t, before.AssigneeID, after.AssigneeID)

	published := f.events.events()
	require.Len(t, published, 2)
	assert.Equal(t, model.EventTaskUpdated, published[1].event.Type)
}

func TestPatchTask_OnlyGivenFieldsChange(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)

	patched, err := f.tasks.PatchTask(context.Background(), uuid.MustParse(task.ID), service.TaskPatch{
		Status: ptr(model.StatusDone),
	}, f.owner)

	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, patched.Status)
	assert.Equal(t, "T1", patched.Title)
	assert.Equal(t, model.PriorityHigh, patched.Priority)
}

func TestPatchTask_BlankTitleRejected(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)

	_, err := f.tasks.PatchTask(context.Background(), uuid.MustParse(task.ID), service.TaskPatch{Title: ptr(" ")}, f.owner)

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteTask_ArchivesAndHidesFromListing(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	task := f.createTask(t, "T1", model.PriorityHigh)
	listed, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// Act
	err = f.tasks.DeleteTask(ctx, uuid.MustParse(task.ID), f.owner)

	// Assert
	require.NoError(t, err)
	stored, ok := f.db.task(uuid.MustParse(task.ID))
	require.True(t, ok)
	assert.True(t, stored.Archived)

	listed, err = f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	published := f.events.events()
	require.Len(t, published, 2)
	assert.Equal(t, model.EventTaskDeleted, published[1].event.Type)
	assert.True(t, published[1].event.Task.Archived)
}

func TestDeleteTask_NotOwner(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)

	err := f.tasks.DeleteTask(context.Background(), uuid.MustParse(task.ID), uuid.New())

	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
	stored, _ := f.db.task(uuid.MustParse(task.ID))
	assert.False(t, stored.Archived)
	assert.Len(t, f.events.events(), 1)
}

func TestAssignTask_NotifiesAssignee(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	bob := f.db.addUser("b@x.com", "bob")
	task := f.createTask(t, "T1", model.PriorityHigh)

	// Act
	assigned, err := f.tasks.AssignTask(ctx, uuid.MustParse(task.ID), &bob.ID, f.owner)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, "b@x.com", assigned.Assignee.Email)
	assert.Equal(t, "bob", assigned.Assignee.Username)

	notes := f.events.notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "b@x.com", notes[0].email)
	assert.Equal(t, "You have been assigned to a task: T1", notes[0].notification.Message)
	assert.Equal(t, model.NotificationAssignment, notes[0].notification.Kind)
	assert.Equal(t, task.ID, notes[0].notification.TaskID)
	assert.Equal(t, f.board.String(), notes[0].notification.BoardID)

	published := f.events.events()
	require.Len(t, published, 2)
	assert.Equal(t, model.EventTaskUpdated, published[1].event.Type)
	require.NotNil(t, published[1].event.Task.Assignee)

	_, namespaces := f.cache.evictions()
	assert.Equal(t, []string{cache.NamespaceTasks, cache.NamespaceTasks}, namespaces)
}

func TestAssignTask_UnknownUser(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)
	writes := f.db.writes.Load()

	_, err := f.tasks.AssignTask(context.Background(), uuid.MustParse(task.ID), ptr(uuid.New()), f.owner)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, writes, f.db.writes.Load())
	assert.Empty(t, f.events.notes())
	assert.Len(t, f.events.events(), 1)
}

func TestAssignTask_NoneClearsAssignee(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	bob := f.db.addUser("b@x.com", "bob")
	task := f.createTask(t, "T1", model.PriorityHigh)
	_, err := f.tasks.AssignTask(ctx, uuid.MustParse(task.ID), &bob.ID, f.owner)
	require.NoError(t, err)

	// Act
	cleared, err := f.tasks.AssignTask(ctx, uuid.MustParse(task.ID), nil, f.owner)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, cleared.Assignee)
	stored, _ := f.db.task(uuid.MustParse(task.ID))
	assert.Nil(t, stored.AssigneeID)

	assert.Len(t, f.events.notes(), 1)
	published := f.events.events()
	require.Len(t, published, 3)
	assert.Equal(t, model.EventTaskUpdated, published[2].event.Type)
	assert.Nil(t, published[2].event.Task.Assignee)
}

func TestAssignTask_NoneOnUnassignedTask(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)

	cleared, err := f.tasks.AssignTask(context.Background(), uuid.MustParse(task.ID), nil, f.owner)

	require.NoError(t, err)
	assert.Nil(t, cleared.Assignee)
	assert.Empty(t, f.events.notes())
	assert.Len(t, f.events.events(), 2)
}

func TestGetTasksByBoard_FiltersAndBatchesAssignees(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	ctx := context.Background()
	bob := f.db.addUser("b@x.com", "bob")
	eve := f.db.addUser("e@x.com", "eve")
	t1 := f.createTask(t, "T1", model.PriorityHigh)
	t2 := f.createTask(t, "T2", model.PriorityLow)
	f.createTask(t, "T3", model.PriorityHigh)
	_, err := f.tasks.AssignTask(ctx, uuid.MustParse(t1.ID), &bob.ID, f.owner)
	require.NoError(t, err)
	_, err = f.tasks.AssignTask(ctx, uuid.MustParse(t2.ID), &eve.ID, f.owner)
	require.NoError(t, err)
	lookups := f.db.batchLookups.Load()

	// Act
	all, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)
	high, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{Priority: ptr(model.PriorityHigh)})
	require.NoError(t, err)
	bobs, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{AssigneeID: &bob.ID})
	require.NoError(t, err)

	// Assert
	require.Len(t, all, 3)
	assert.Equal(t, "bob", all[0].Assignee.Username)
	assert.Equal(t, "eve", all[1].Assignee.Username)
	assert.Nil(t, all[2].Assignee)
	assert.Len(t, high, 2)
	require.Len(t, bobs, 1)
	assert.Equal(t, "T1", bobs[0].Title)
	assert.Equal(t, lookups+3, f.db.batchLookups.Load())
}

func TestGetTasksByBoard_CachedButStillAuthorized(t *testing.T) {
	f := setupTaskService(t)
	ctx := context.Background()
	f.createTask(t, "T1", model.PriorityHigh)
	_, err := f.tasks.GetTasksByBoard(ctx, f.board, f.owner, repository.TaskFilter{})
	require.NoError(t, err)

	_, err = f.tasks.GetTasksByBoard(ctx, f.board, uuid.New(), repository.TaskFilter{})

	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestGetTask(t *testing.T) {
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)

	got, err := f.tasks.GetTask(context.Background(), uuid.MustParse(task.ID), f.owner)
	require.NoError(t, err)
	assert.Equal(t, task, *got)

	_, err = f.tasks.GetTask(context.Background(), uuid.MustParse(task.ID), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = f.tasks.GetTask(context.Background(), uuid.New(), f.owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateTask_ConcurrentWritesLastOneWins(t *testing.T) {
	// Arrange
	f := setupTaskService(t)
	task := f.createTask(t, "T1", model.PriorityHigh)
	id := uuid.MustParse(task.ID)
	titles := []string{"from session A", "from session B"}

	// Act
	var wg sync.WaitGroup
	errs := make([]error, len(titles))
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			_, errs[i] = f.tasks.UpdateTask(context.Background(), id, service.TaskInput{
				Title:    title,
				Status:   model.StatusTodo,
				Priority: model.PriorityHigh,
			}, f.owner)
		}(i, title)
	}
	wg.Wait()

	// Assert
	for _, err := range errs {
		assert.NoError(t, err)
	}
	stored, ok := f.db.task(id)
	require.True(t, ok)
	assert.Contains(t, titles, stored.Title)
	assert.Len(t, f.events.events(), 3)
}
