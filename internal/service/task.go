// Package service applies validation, defaults and ownership rules on top of
// the record stores.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskwall/internal/service")

// toggleAttempts bounds the read/compare-and-swap loop in ToggleComplete.
const toggleAttempts = 3

// TaskService exposes task operations scoped to the calling owner.
type TaskService struct {
	store  repository.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(store repository.TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{store: store, logger: logger}
}

// ListTasks returns every task owned by owner.
func (s *TaskService) ListTasks(ctx context.Context, owner string) ([]*model.Task, error) {
	return s.store.ListByOwner(ctx, owner)
}

// CreateTask validates req and stores a task owned by owner.
func (s *TaskService) CreateTask(ctx context.Context, owner string, req *model.CreateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CreateTask")
	defer span.End()

	if err := req.Normalize(); err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
		List:        req.List,
		Tags:        req.Tags,
		Subtasks:    req.Subtasks,
		Owner:       owner,
	}
	return s.store.Create(ctx, task)
}

// GetTask returns a single task after the ownership check.
func (s *TaskService) GetTask(ctx context.Context, id, owner string) (*model.Task, error) {
	return s.authorize(ctx, id, owner)
}

// UpdateTask applies the supplied fields of patch to the task.
func (s *TaskService) UpdateTask(ctx context.Context, id, owner string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.UpdateTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := patch.Normalize(); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, id, owner); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, owner, patch)
}

// DeleteTask permanently removes the task.
func (s *TaskService) DeleteTask(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "TaskService.DeleteTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := s.authorize(ctx, id, owner); err != nil {
		return err
	}
	return s.store.Delete(ctx, id, owner)
}

// ToggleComplete flips the stored completed flag. The write is conditional on
// the value just read; when another toggle lands in between, the task is read
// again and the flip retried.
func (s *TaskService) ToggleComplete(ctx context.Context, id, owner string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.ToggleComplete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	for attempt := 1; attempt <= toggleAttempts; attempt++ {
		current, err := s.authorize(ctx, id, owner)
		if err != nil {
			return nil, err
		}

		task, err := s.store.SetCompleted(ctx, id, owner, current.Completed, !current.Completed)
		if err == nil {
			span.SetAttributes(attribute.Int("toggle.attempts", attempt))
			return task, nil
		}
		if !errors.Is(err, repository.ErrCompletedChanged) {
			return nil, err
		}
		s.logger.DebugContext(ctx, "toggle lost race, retrying",
			slog.String("id", id),
			slog.Int("attempt", attempt),
		)
	}
	return nil, model.StoreError("failed to toggle task", repository.ErrCompletedChanged)
}

// authorize loads the task and rejects callers that do not own it.
func (s *TaskService) authorize(ctx context.Context, id, owner string) (*model.Task, error) {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Owner != owner {
		s.logger.WarnContext(ctx, "unauthorized task access",
			slog.String("id", id),
			slog.String("owner", owner),
		)
		return nil, model.ErrNotOwner
	}
	return task, nil
}
