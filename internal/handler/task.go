package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/service"
	"github.com/hiroki-koketsu/taskwall/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tasksRoute = "/api/tasks"
	taskRoute  = "/api/tasks/{id}"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	base
	svc *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		base: base{logger: logger, metrics: metrics},
		svc:  svc,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/toggle", h.Toggle)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns the caller's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "TaskHandler.List")
	defer span.End()

	owner := ownerOf(r)
	tasks, err := h.svc.ListTasks(ctx, owner)
	if err != nil {
		h.fail(ctx, w, http.MethodGet, tasksRoute, start, "failed to list tasks", err)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.String("owner", owner), slog.Int("count", len(tasks)))
	h.ok(ctx, w, http.MethodGet, tasksRoute, start, http.StatusOK, tasks)
}

// Create adds a new task owned by the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Create")
	defer span.End()

	var req model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badBody(ctx, w, http.MethodPost, tasksRoute, start, err)
		return
	}

	task, err := h.svc.CreateTask(ctx, ownerOf(r), &req)
	if err != nil {
		h.fail(ctx, w, http.MethodPost, tasksRoute, start, "failed to create task", err)
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.String("id", task.ID))
	h.ok(ctx, w, http.MethodPost, tasksRoute, start, http.StatusCreated, task)
}

// Get returns one of the caller's tasks.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Get",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.GetTask(ctx, id, ownerOf(r))
	if err != nil {
		h.fail(ctx, w, http.MethodGet, taskRoute, start, "failed to get task", err)
		return
	}
	h.ok(ctx, w, http.MethodGet, taskRoute, start, http.StatusOK, task)
}

// Update applies a partial update.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badBody(ctx, w, http.MethodPatch, taskRoute, start, err)
		return
	}

	task, err := h.svc.UpdateTask(ctx, id, ownerOf(r), &req)
	if err != nil {
		h.fail(ctx, w, http.MethodPatch, taskRoute, start, "failed to update task", err)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))
	h.ok(ctx, w, http.MethodPatch, taskRoute, start, http.StatusOK, task)
}

// Toggle flips the completed flag against the stored value.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	route := taskRoute + "/toggle"
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Toggle",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.ToggleComplete(ctx, id, ownerOf(r))
	if err != nil {
		h.fail(ctx, w, http.MethodPost, route, start, "failed to toggle task", err)
		return
	}

	h.logger.InfoContext(ctx, "task toggled", slog.String("id", id), slog.Bool("completed", task.Completed))
	h.ok(ctx, w, http.MethodPost, route, start, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := h.svc.DeleteTask(ctx, id, ownerOf(r)); err != nil {
		h.fail(ctx, w, http.MethodDelete, taskRoute, start, "failed to delete task", err)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))
	h.ok(ctx, w, http.MethodDelete, taskRoute, start, http.StatusOK, messageBody{Message: "Task removed"})
}
