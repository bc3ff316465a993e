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
)

const (
	notesRoute = "/api/sticky-notes"
	noteRoute  = "/api/sticky-notes/{id}"
)

// NoteHandler handles HTTP requests for sticky notes.
type NoteHandler struct {
	base
	svc *service.NoteService
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(svc *service.NoteService, logger *slog.Logger, metrics *telemetry.Metrics) *NoteHandler {
	return &NoteHandler{
		base: base{logger: logger, metrics: metrics},
		svc:  svc,
	}
}

// Routes returns the chi router with sticky-note routes. PUT has patch semantics.
func (h *NoteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns the caller's sticky notes, newest first.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "NoteHandler.List")
	defer span.End()

	owner := ownerOf(r)
	notes, err := h.svc.ListNotes(ctx, owner)
	if err != nil {
		h.fail(ctx, w, http.MethodGet, notesRoute, start, "failed to list notes", err)
		return
	}

	h.logger.InfoContext(ctx, "notes listed", slog.String("owner", owner), slog.Int("count", len(notes)))
	h.ok(ctx, w, http.MethodGet, notesRoute, start, http.StatusOK, notes)
}

// Create adds a sticky note.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "NoteHandler.Create")
	defer span.End()

	var req model.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badBody(ctx, w, http.MethodPost, notesRoute, start, err)
		return
	}

	note, err := h.svc.CreateNote(ctx, ownerOf(r), &req)
	if err != nil {
		h.fail(ctx, w, http.MethodPost, notesRoute, start, "failed to create note", err)
		return
	}

	h.logger.InfoContext(ctx, "note created", slog.String("id", note.ID))
	h.ok(ctx, w, http.MethodPost, notesRoute, start, http.StatusCreated, note)
}

// Update changes the supplied fields of a sticky note.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "NoteHandler.Update")
	defer span.End()

	var req model.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badBody(ctx, w, http.MethodPut, noteRoute, start, err)
		return
	}

	note, err := h.svc.UpdateNote(ctx, id, ownerOf(r), &req)
	if err != nil {
		h.fail(ctx, w, http.MethodPut, noteRoute, start, "failed to update note", err)
		return
	}

	h.logger.InfoContext(ctx, "note updated", slog.String("id", id))
	h.ok(ctx, w, http.MethodPut, noteRoute, start, http.StatusOK, note)
}

// Delete removes a sticky note.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "NoteHandler.Delete")
	defer span.End()

	if err := h.svc.DeleteNote(ctx, id, ownerOf(r)); err != nil {
		h.fail(ctx, w, http.MethodDelete, noteRoute, start, "failed to delete note", err)
		return
	}

	h.logger.InfoContext(ctx, "note deleted", slog.String("id", id))
	h.ok(ctx, w, http.MethodDelete, noteRoute, start, http.StatusOK, messageBody{Message: "Note removed"})
}
