package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTaskService(t *testing.T) *TaskService {
	t.Helper()
	return NewTaskService(repository.NewMemoryTaskStore(), discardLogger())
}

func TestTaskService_CreateTask(t *testing.T) {
	tests := []struct {
		name           string
		req            model.CreateTaskRequest
		errorAssertion func(t *testing.T, err error)
		check          func(t *testing.T, task *model.Task)
	}{
		{
			name: "should apply defaults",
			req:  model.CreateTaskRequest{Title: "Buy milk"},
			check: func(t *testing.T, task *model.Task) {
				assert.Equal(t, model.ListPersonal, task.List)
				assert.False(t, task.Completed)
				assert.Nil(t, task.DueDate)
				assert.Equal(t, []string{}, task.Tags)
			},
		},
		{
			name: "should trim title and description",
			req:  model.CreateTaskRequest{Title: "  Plan trip  ", Description: " book flights "},
			check: func(t *testing.T, task *model.Task) {
				assert.Equal(t, "Plan trip", task.Title)
				assert.Equal(t, "book flights", task.Description)
			},
		},
		{
			name: "should merge legacy tag into tags",
			req:  model.CreateTaskRequest{Title: "Gym", Tag: "Health", Tags: []string{"Personal", "Health"}},
			check: func(t *testing.T, task *model.Task) {
				assert.Equal(t, []string{"Personal", "Health"}, task.Tags)
			},
		},
		{
			name: "should return validation error for empty title",
			req:  model.CreateTaskRequest{Title: ""},
			errorAssertion: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrValidation)
				assert.Contains(t, err.Error(), "title")
			},
		},
		{
			name: "should return validation error for whitespace-only title",
			req:  model.CreateTaskRequest{Title: "   "},
			errorAssertion: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
		{
			name: "should reject unknown list",
			req:  model.CreateTaskRequest{Title: "Errand", List: "Groceries"},
			errorAssertion: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrValidation)
				assert.Contains(t, err.Error(), "Groceries")
			},
		},
		{
			name: "should reject empty subtask title",
			req:  model.CreateTaskRequest{Title: "Pack", Subtasks: []model.Subtask{{Title: " "}}},
			errorAssertion: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := setupTaskService(t)
			ctx := context.Background()

			result, err := service.CreateTask(ctx, "alice", &tt.req)

			if tt.errorAssertion != nil {
				tt.errorAssertion(t, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.ID)
			assert.Equal(t, "alice", result.Owner)
			tt.check(t, result)
		})
	}
}

func TestTaskService_CreateThenList(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	due := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Buy milk", DueDate: &due, List: model.ListWork})
	require.NoError(t, err)
	_, err = service.CreateTask(ctx, "bob", &model.CreateTaskRequest{Title: "Not yours"})
	require.NoError(t, err)

	tasks, err := service.ListTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, model.ListWork, got.List)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.False(t, got.Completed)
}

func TestTaskService_UpdateTask(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Draft", Description: "keep me", Tag: "Work"})
	require.NoError(t, err)

	title := "Final"
	updated, err := service.UpdateTask(ctx, created.ID, "alice", &model.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, []string{"Work"}, updated.Tags)

	empty := "  "
	_, err = service.UpdateTask(ctx, created.ID, "alice", &model.UpdateTaskRequest{Title: &empty})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTaskService_OwnershipEnforced(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Private"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = service.UpdateTask(ctx, created.ID, "mallory", &model.UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, model.ErrAuthorization)

	err = service.DeleteTask(ctx, created.ID, "mallory")
	assert.ErrorIs(t, err, model.ErrAuthorization)

	_, err = service.ToggleComplete(ctx, created.ID, "mallory")
	assert.ErrorIs(t, err, model.ErrAuthorization)

	got, err := service.GetTask(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
	assert.False(t, got.Completed)
}

func TestTaskService_NotFound(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	completed := true
	_, err := service.UpdateTask(ctx, "missing", "alice", &model.UpdateTaskRequest{Completed: &completed})
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, service.DeleteTask(ctx, "missing", "alice"), model.ErrNotFound)

	_, err = service.ToggleComplete(ctx, "missing", "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTaskService_DeleteTask(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Temporary"})
	require.NoError(t, err)

	require.NoError(t, service.DeleteTask(ctx, created.ID, "alice"))

	tasks, err := service.ListTasks(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskService_ToggleTwiceRestores(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Flip"})
	require.NoError(t, err)

	once, err := service.ToggleComplete(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.True(t, once.Completed)

	twice, err := service.ToggleComplete(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.Completed, twice.Completed)
}

func TestTaskService_ConcurrentTogglesDoNotLoseUpdates(t *testing.T) {
	service := setupTaskService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "Race"})
	require.NoError(t, err)

	for range 50 {
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.ToggleComplete(ctx, created.ID, "alice")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := service.GetTask(ctx, created.ID, "alice")
		require.NoError(t, err)
		require.False(t, got.Completed, "two toggles must cancel out")
	}
}

// contendedStore always reports that another writer changed the flag.
type contendedStore struct {
	repository.TaskStore
}

func (contendedStore) SetCompleted(context.Context, string, string, bool, bool) (*model.Task, error) {
	return nil, repository.ErrCompletedChanged
}

func TestTaskService_ToggleGivesUpAfterRetries(t *testing.T) {
	base := repository.NewMemoryTaskStore()
	ctx := context.Background()
	created, err := base.Create(ctx, &model.Task{Title: "Busy", Owner: "alice"})
	require.NoError(t, err)

	service := NewTaskService(contendedStore{TaskStore: base}, discardLogger())

	_, err = service.ToggleComplete(ctx, created.ID, "alice")
	assert.ErrorIs(t, err, model.ErrStore)
	assert.ErrorIs(t, err, repository.ErrCompletedChanged)
}
