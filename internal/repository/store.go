package repository

import (
	"context"
	"errors"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskwall/internal/repository")

// ErrCompletedChanged is returned by SetCompleted when the stored completed
// flag no longer holds the expected value.
var ErrCompletedChanged = errors.New("completed state changed")

// TaskStore persists tasks. Mutations are scoped by (id, owner): a record whose
// owner differs behaves as if it does not exist.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) (*model.Task, error)
	ListByOwner(ctx context.Context, owner string) ([]*model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, id, owner string, patch *model.UpdateTaskRequest) (*model.Task, error)
	SetCompleted(ctx context.Context, id, owner string, expected, next bool) (*model.Task, error)
	Delete(ctx context.Context, id, owner string) error
	Count(ctx context.Context) (int64, error)
}

// NoteStore persists sticky notes. ListByOwner returns newest first.
type NoteStore interface {
	Create(ctx context.Context, note *model.StickyNote) (*model.StickyNote, error)
	ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error)
	GetByID(ctx context.Context, id string) (*model.StickyNote, error)
	Update(ctx context.Context, id, owner string, patch *model.UpdateNoteRequest) (*model.StickyNote, error)
	Delete(ctx context.Context, id, owner string) error
}
