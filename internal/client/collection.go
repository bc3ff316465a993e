package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/view"
)

// EntryState is the synchronization state of one task in a Collection.
type EntryState int

const (
	Absent EntryState = iota
	Present
	PendingUpdate
	PendingDelete
)

func (s EntryState) String() string {
	switch s {
	case Present:
		return "present"
	case PendingUpdate:
		return "pending-update"
	case PendingDelete:
		return "pending-delete"
	default:
		return "absent"
	}
}

// TaskAPI is the subset of API a Collection needs.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch *model.UpdateTaskRequest) (*model.Task, error)
	ToggleTask(ctx context.Context, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Collection is the client's ordered list of tasks. It only changes after the
// server acknowledges a request, and then only by taking the record the
// server returned. A failed request leaves it exactly as it was.
type Collection struct {
	api    TaskAPI
	logger *slog.Logger

	mu       sync.Mutex
	tasks    []model.Task
	pending  map[string]EntryState
	creating int

	// epoch counts acknowledged mutations. While a Refresh is in flight each
	// one is also journaled so it can be replayed onto the fetched list.
	epoch      uint64
	refreshing int
	journal    []mutation
}

type mutationKind int

const (
	mutationCreate mutationKind = iota
	mutationReplace
	mutationDelete
)

type mutation struct {
	epoch uint64
	kind  mutationKind
	id    string
	task  model.Task
}

// NewCollection creates an empty Collection backed by api.
func NewCollection(api TaskAPI, logger *slog.Logger) *Collection {
	return &Collection{
		api:     api,
		logger:  logger,
		pending: make(map[string]EntryState),
	}
}

// Refresh replaces the collection with the server's list. Mutations
// acknowledged while the list was in flight are applied on top of it.
func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.refreshing++
	start := c.epoch
	c.mu.Unlock()

	tasks, err := c.api.ListTasks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.endRefresh()
	if err != nil {
		c.logger.ErrorContext(ctx, "error fetching tasks", slog.Any("error", err))
		return err
	}

	for _, m := range c.journal {
		if m.epoch > start {
			tasks = m.apply(tasks)
		}
	}
	c.tasks = tasks
	return nil
}

// endRefresh must be called with mu held.
func (c *Collection) endRefresh() {
	c.refreshing--
	if c.refreshing == 0 {
		c.journal = nil
	}
}

// record must be called with mu held.
func (c *Collection) record(kind mutationKind, id string, task *model.Task) {
	c.epoch++
	if c.refreshing == 0 {
		return
	}
	m := mutation{epoch: c.epoch, kind: kind, id: id}
	if task != nil {
		m.task = *task.Clone()
	}
	c.journal = append(c.journal, m)
}

func (m mutation) apply(tasks []model.Task) []model.Task {
	i := slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == m.id })
	switch m.kind {
	case mutationDelete:
		if i >= 0 {
			tasks = slices.Delete(tasks, i, i+1)
		}
	case mutationCreate:
		if i < 0 {
			return append(tasks, *m.task.Clone())
		}
		fallthrough
	case mutationReplace:
		if i >= 0 && !tasks[i].UpdatedAt.After(m.task.UpdatedAt) {
			tasks[i] = *m.task.Clone()
		}
	}
	return tasks
}

// Add creates a task and appends the server's record.
func (c *Collection) Add(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	c.mu.Lock()
	c.creating++
	c.mu.Unlock()

	task, err := c.api.CreateTask(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.creating--
	if err != nil {
		c.logger.ErrorContext(ctx, "error adding task", slog.Any("error", err))
		return nil, err
	}
	c.tasks = append(c.tasks, *task.Clone())
	c.record(mutationCreate, task.ID, task)
	return task, nil
}

// Update sends patch and replaces the entry with the server's record.
func (c *Collection) Update(ctx context.Context, id string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	return c.replace(ctx, id, "error updating task", func(ctx context.Context) (*model.Task, error) {
		return c.api.UpdateTask(ctx, id, patch)
	})
}

// Toggle flips the completed flag server-side and takes the returned record.
func (c *Collection) Toggle(ctx context.Context, id string) (*model.Task, error) {
	return c.replace(ctx, id, "error updating task", func(ctx context.Context) (*model.Task, error) {
		return c.api.ToggleTask(ctx, id)
	})
}

func (c *Collection) replace(ctx context.Context, id, msg string, call func(context.Context) (*model.Task, error)) (*model.Task, error) {
	c.begin(id, PendingUpdate)
	task, err := call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
	if err != nil {
		c.logger.ErrorContext(ctx, msg, slog.String("id", id), slog.Any("error", err))
		return nil, err
	}
	if i := c.index(id); i >= 0 {
		c.tasks[i] = *task.Clone()
	}
	c.record(mutationReplace, id, task)
	return task, nil
}

// Delete removes the entry once the server confirms the delete.
func (c *Collection) Delete(ctx context.Context, id string) error {
	c.begin(id, PendingDelete)
	err := c.api.DeleteTask(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
	if err != nil {
		c.logger.ErrorContext(ctx, "error deleting task", slog.String("id", id), slog.Any("error", err))
		return err
	}
	c.tasks = slices.DeleteFunc(c.tasks, func(t model.Task) bool { return t.ID == id })
	c.record(mutationDelete, id, nil)
	return nil
}

func (c *Collection) begin(id string, state EntryState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index(id) >= 0 {
		c.pending[id] = state
	}
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.tasks, func(t model.Task) bool { return t.ID == id })
}

// State reports where the task with id is in its lifecycle.
func (c *Collection) State(id string) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.pending[id]; ok {
		return s
	}
	if c.index(id) >= 0 {
		return Present
	}
	return Absent
}

// PendingCreates is the number of creates awaiting a response.
func (c *Collection) PendingCreates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

// Tasks returns a deep copy of the collection in order.
func (c *Collection) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, len(c.tasks))
	for i := range c.tasks {
		out[i] = *c.tasks[i].Clone()
	}
	return out
}

// View returns the tasks visible under key at now.
func (c *Collection) View(key view.Key, now time.Time) []model.Task {
	return view.Filter(c.Tasks(), key, now)
}

// Counts returns the sidebar counts at now.
func (c *Collection) Counts(now time.Time) map[view.Key]int {
	return view.Counts(c.Tasks(), now)
}
