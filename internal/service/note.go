package service

import (
	"context"
	"log/slog"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NoteService exposes sticky-note operations scoped to the calling owner.
type NoteService struct {
	store  repository.NoteStore
	logger *slog.Logger
}

// NewNoteService creates a NoteService.
func NewNoteService(store repository.NoteStore, logger *slog.Logger) *NoteService {
	return &NoteService{store: store, logger: logger}
}

// ListNotes returns the owner's notes newest first.
func (s *NoteService) ListNotes(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	return s.store.ListByOwner(ctx, owner)
}

// CreateNote validates req and stores a note owned by owner.
func (s *NoteService) CreateNote(ctx context.Context, owner string, req *model.CreateNoteRequest) (*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "NoteService.CreateNote")
	defer span.End()

	if err := req.Normalize(); err != nil {
		return nil, err
	}
	note := &model.StickyNote{
		Content:  *req.Content,
		Color:    req.Color,
		Position: *req.Position,
		Owner:    owner,
	}
	return s.store.Create(ctx, note)
}

// UpdateNote applies the supplied fields of patch to the note.
func (s *NoteService) UpdateNote(ctx context.Context, id, owner string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "NoteService.UpdateNote",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	if err := s.authorize(ctx, id, owner); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, owner, patch)
}

// DeleteNote removes the note after the ownership check.
func (s *NoteService) DeleteNote(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "NoteService.DeleteNote",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	if err := s.authorize(ctx, id, owner); err != nil {
		return err
	}
	return s.store.Delete(ctx, id, owner)
}

// authorize loads the note and checks it belongs to owner.
func (s *NoteService) authorize(ctx context.Context, id, owner string) error {
	note, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.Owner != owner {
		s.logger.WarnContext(ctx, "unauthorized note access",
			slog.String("id", id),
			slog.String("owner", owner),
		)
		return model.ErrNotOwner
	}
	return nil
}
