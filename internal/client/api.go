// Package client talks to the taskwall REST API and keeps client-side task
// and note collections in step with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// API is a bearer-authenticated client for the task and sticky-note endpoints.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures an API.
type Option func(*API)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.http = c }
}

// NewAPI creates an API rooted at baseURL (e.g. http://localhost:5000).
func NewAPI(baseURL, token string, opts ...Option) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := a.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks)
	return tasks, err
}

func (a *API) CreateTask(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *API) UpdateTask(ctx context.Context, id string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *API) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/toggle", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (a *API) ListNotes(ctx context.Context) ([]model.StickyNote, error) {
	var notes []model.StickyNote
	err := a.do(ctx, http.MethodGet, "/api/sticky-notes", nil, &notes)
	return notes, err
}

func (a *API) CreateNote(ctx context.Context, req *model.CreateNoteRequest) (*model.StickyNote, error) {
	var note model.StickyNote
	if err := a.do(ctx, http.MethodPost, "/api/sticky-notes", req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (a *API) UpdateNote(ctx context.Context, id string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	var note model.StickyNote
	if err := a.do(ctx, http.MethodPut, "/api/sticky-notes/"+url.PathEscape(id), patch, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (a *API) DeleteNote(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/sticky-notes/"+url.PathEscape(id), nil, nil)
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Detail = payload.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
