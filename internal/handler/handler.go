package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hiroki-koketsu/taskwall/internal/auth"
	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/telemetry"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskwall/internal/handler")

// NewRouter assembles the API: standard middleware, the unauthenticated health
// check and the bearer-protected task and sticky-note routes.
func NewRouter(tasks *TaskHandler, notes *NoteHandler, verifier *auth.Verifier, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(verifier.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "rejected credential",
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			respondJSON(w, http.StatusUnauthorized, messageBody{Message: rejectMessage(err)})
		}))
		r.Mount("/tasks", tasks.Routes())
		r.Mount("/sticky-notes", notes.Routes())
	})

	return r
}

// Health returns a health check response.
func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func rejectMessage(err error) string {
	if errors.Is(err, auth.ErrMissingAuthorization) {
		return auth.ErrMissingAuthorization.Error()
	}
	return auth.ErrInvalidToken.Error()
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuthorization:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(status int, err error) messageBody {
	if status == http.StatusInternalServerError {
		return messageBody{Message: "Server error", Error: err.Error()}
	}
	var e *model.Error
	if errors.As(err, &e) {
		return messageBody{Message: e.Message}
	}
	return messageBody{Message: err.Error()}
}

// base carries what every resource handler shares.
type base struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// fail logs err at a level matching its status, writes the error response
// and records the request.
func (b *base) fail(ctx context.Context, w http.ResponseWriter, method, route string, start time.Time, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		b.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	} else {
		b.logger.WarnContext(ctx, msg, slog.Any("error", err))
	}
	respondJSON(w, status, errorBody(status, err))
	b.metrics.RecordRequest(ctx, method, route, status, start)
}

func (b *base) ok(ctx context.Context, w http.ResponseWriter, method, route string, start time.Time, status int, data any) {
	respondJSON(w, status, data)
	b.metrics.RecordRequest(ctx, method, route, status, start)
}

func (b *base) badBody(ctx context.Context, w http.ResponseWriter, method, route string, start time.Time, err error) {
	b.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
	respondJSON(w, http.StatusBadRequest, messageBody{Message: "invalid request body"})
	b.metrics.RecordRequest(ctx, method, route, http.StatusBadRequest, start)
}

// ownerOf returns the authenticated caller. Routes are mounted behind the
// auth middleware, so a missing owner is a wiring error.
func ownerOf(r *http.Request) string {
	owner, ok := auth.OwnerFrom(r.Context())
	if !ok {
		panic("handler: request reached without an authenticated owner")
	}
	return owner
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
