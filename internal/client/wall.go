package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/hiroki-koketsu/taskwall/internal/model"
)

// NoteAPI is the subset of API a NoteWall needs.
type NoteAPI interface {
	ListNotes(ctx context.Context) ([]model.StickyNote, error)
	CreateNote(ctx context.Context, req *model.CreateNoteRequest) (*model.StickyNote, error)
	UpdateNote(ctx context.Context, id string, patch *model.UpdateNoteRequest) (*model.StickyNote, error)
	DeleteNote(ctx context.Context, id string) error
}

// NoteWall holds the sticky notes shown on the wall, newest first, with the
// same acknowledge-then-apply rules as Collection.
type NoteWall struct {
	api    NoteAPI
	logger *slog.Logger

	mu    sync.Mutex
	notes []model.StickyNote
}

func NewNoteWall(api NoteAPI, logger *slog.Logger) *NoteWall {
	return &NoteWall{api: api, logger: logger}
}

func (w *NoteWall) Refresh(ctx context.Context) error {
	notes, err := w.api.ListNotes(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "error fetching notes", slog.Any("error", err))
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notes = notes
	return nil
}

// Add creates a note and puts it at the front of the wall.
func (w *NoteWall) Add(ctx context.Context, req *model.CreateNoteRequest) (*model.StickyNote, error) {
	note, err := w.api.CreateNote(ctx, req)
	if err != nil {
		w.logger.ErrorContext(ctx, "error adding note", slog.Any("error", err))
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notes = slices.Insert(w.notes, 0, *note)
	return note, nil
}

func (w *NoteWall) Update(ctx context.Context, id string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	note, err := w.api.UpdateNote(ctx, id, patch)
	if err != nil {
		w.logger.ErrorContext(ctx, "error updating note", slog.String("id", id), slog.Any("error", err))
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.IndexFunc(w.notes, func(n model.StickyNote) bool { return n.ID == id }); i >= 0 {
		w.notes[i] = *note
	}
	return note, nil
}

func (w *NoteWall) Delete(ctx context.Context, id string) error {
	if err := w.api.DeleteNote(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "error deleting note", slog.String("id", id), slog.Any("error", err))
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notes = slices.DeleteFunc(w.notes, func(n model.StickyNote) bool { return n.ID == id })
	return nil
}

// Notes returns a snapshot of the wall.
func (w *NoteWall) Notes() []model.StickyNote {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.notes)
}
