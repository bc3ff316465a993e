package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/taskwall/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MemoryTaskStore keeps tasks in process memory.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	last  time.Time
	now   func() time.Time
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*model.Task),
		now:   time.Now,
	}
}

// Create stores a copy of task with a fresh id and timestamps.
func (r *MemoryTaskStore) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Create",
		trace.WithAttributes(attribute.String("task.owner", task.Owner)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := task.Clone()
	stored.ID = uuid.New().String()
	// Creation times are strictly increasing so ListByOwner order is stable.
	now := r.now()
	if !now.After(r.last) {
		now = r.last.Add(time.Nanosecond)
	}
	r.last = now
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.tasks[stored.ID] = stored

	span.SetAttributes(attribute.String("task.id", stored.ID))
	return stored.Clone(), nil
}

// ListByOwner returns the owner's tasks oldest first.
func (r *MemoryTaskStore) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.ListByOwner")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, task := range r.tasks {
		if task.Owner == owner {
			tasks = append(tasks, task.Clone())
		}
	}
	slices.SortFunc(tasks, func(a, b *model.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// GetByID retrieves a task by its ID regardless of owner.
func (r *MemoryTaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// Update applies patch to the task owned by owner.
func (r *MemoryTaskStore) Update(ctx context.Context, id, owner string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.Owner != owner {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	patch.Apply(task)
	task.UpdatedAt = r.now()

	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// SetCompleted writes next only if the stored flag still equals expected.
func (r *MemoryTaskStore) SetCompleted(ctx context.Context, id, owner string, expected, next bool) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.SetCompleted",
		trace.WithAttributes(attribute.String("task.id", id), attribute.Bool("task.completed", next)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.Owner != owner {
		return nil, model.ErrTaskNotFound
	}
	if task.Completed != expected {
		return nil, ErrCompletedChanged
	}

	task.Completed = next
	task.UpdatedAt = r.now()
	return task.Clone(), nil
}

// Delete removes the task owned by owner.
func (r *MemoryTaskStore) Delete(ctx context.Context, id, owner string) error {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.Owner != owner {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}

	delete(r.tasks, id)
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the current number of tasks across all owners.
func (r *MemoryTaskStore) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.tasks)), nil
}

// MemoryNoteStore keeps sticky notes in process memory.
type MemoryNoteStore struct {
	mu    sync.RWMutex
	notes map[string]*model.StickyNote
	seq   int64
	order map[string]int64
	now   func() time.Time
}

// NewMemoryNoteStore creates an empty MemoryNoteStore.
func NewMemoryNoteStore() *MemoryNoteStore {
	return &MemoryNoteStore{
		notes: make(map[string]*model.StickyNote),
		order: make(map[string]int64),
		now:   time.Now,
	}
}

func (r *MemoryNoteStore) Create(ctx context.Context, note *model.StickyNote) (*model.StickyNote, error) {
	_, span := tracer.Start(ctx, "MemoryNoteStore.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *note
	stored.ID = uuid.New().String()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.seq++
	r.notes[stored.ID] = &stored
	r.order[stored.ID] = r.seq

	span.SetAttributes(attribute.String("note.id", stored.ID))
	out := stored
	return &out, nil
}

// ListByOwner returns the owner's notes newest first.
func (r *MemoryNoteStore) ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	_, span := tracer.Start(ctx, "MemoryNoteStore.ListByOwner")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]*model.StickyNote, 0)
	for _, n := range r.notes {
		if n.Owner == owner {
			c := *n
			notes = append(notes, &c)
		}
	}
	slices.SortFunc(notes, func(a, b *model.StickyNote) int {
		return int(r.order[b.ID] - r.order[a.ID])
	})
	return notes, nil
}

func (r *MemoryNoteStore) GetByID(ctx context.Context, id string) (*model.StickyNote, error) {
	_, span := tracer.Start(ctx, "MemoryNoteStore.GetByID",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[id]
	if !ok {
		return nil, model.ErrNoteNotFound
	}
	c := *n
	return &c, nil
}

func (r *MemoryNoteStore) Update(ctx context.Context, id, owner string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	_, span := tracer.Start(ctx, "MemoryNoteStore.Update",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[id]
	if !ok || n.Owner != owner {
		return nil, model.ErrNoteNotFound
	}
	patch.Apply(n)
	n.UpdatedAt = r.now()
	c := *n
	return &c, nil
}

func (r *MemoryNoteStore) Delete(ctx context.Context, id, owner string) error {
	_, span := tracer.Start(ctx, "MemoryNoteStore.Delete",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[id]
	if !ok || n.Owner != owner {
		return model.ErrNoteNotFound
	}
	delete(r.notes, id)
	delete(r.order, id)
	return nil
}
