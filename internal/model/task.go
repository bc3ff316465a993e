package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Task represents a todo item owned by a single user.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	List        List       `json:"list"`
	Tags        []string   `json:"tags"`
	Subtasks    []Subtask  `json:"subtasks"`
	Owner       string     `json:"owner"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of t. Tags and Subtasks are never nil in the copy.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Tags = slices.Clone(t.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.Subtasks = slices.Clone(t.Subtasks)
	if c.Subtasks == nil {
		c.Subtasks = []Subtask{}
	}
	return &c
}

// Subtask is an ordered checklist entry inside a task.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// HasTag reports whether the task carries the exact label.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// CreateTaskRequest represents the request body for creating a task.
// Tag is the legacy single-label field; it is merged into Tags.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed,omitempty"`
	List        List       `json:"list,omitempty"`
	Tag         string     `json:"tag,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Subtasks    []Subtask  `json:"subtasks,omitempty"`
}

// Normalize trims text fields and applies defaults. It returns a validation
// error when the request cannot produce a valid task.
func (r *CreateTaskRequest) Normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return ErrTitleRequired
	}
	r.Description = strings.TrimSpace(r.Description)

	if r.List == "" {
		r.List = DefaultList
	}
	if !r.List.Valid() {
		return InvalidList(r.List)
	}

	r.Tags = NormalizeTags(append(r.Tags, r.Tag))
	r.Tag = ""

	subtasks, err := normalizeSubtasks(r.Subtasks)
	if err != nil {
		return err
	}
	r.Subtasks = subtasks
	return nil
}

// UpdateTaskRequest represents a partial update. Nil fields keep the stored value.
type UpdateTaskRequest struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	DueDate     NullableTime `json:"dueDate,omitzero"`
	Completed   *bool        `json:"completed,omitempty"`
	List        *List        `json:"list,omitempty"`
	Tag         *string      `json:"tag,omitempty"`
	Tags        *[]string    `json:"tags,omitempty"`
	Subtasks    *[]Subtask   `json:"subtasks,omitempty"`
}

// Normalize trims supplied text fields and folds the legacy tag into Tags.
func (r *UpdateTaskRequest) Normalize() error {
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" {
			return ErrTitleRequired
		}
		r.Title = &title
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		r.Description = &desc
	}
	if r.List != nil && !r.List.Valid() {
		return InvalidList(*r.List)
	}
	if r.Tag != nil {
		var tags []string
		if r.Tags != nil {
			tags = *r.Tags
		}
		tags = append(tags, *r.Tag)
		r.Tags = &tags
		r.Tag = nil
	}
	if r.Tags != nil {
		tags := NormalizeTags(*r.Tags)
		r.Tags = &tags
	}
	if r.Subtasks != nil {
		subtasks, err := normalizeSubtasks(*r.Subtasks)
		if err != nil {
			return err
		}
		r.Subtasks = &subtasks
	}
	return nil
}

// Apply copies every supplied field onto t.
func (r *UpdateTaskRequest) Apply(t *Task) {
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.DueDate.Set {
		t.DueDate = r.DueDate.Time()
	}
	if r.Completed != nil {
		t.Completed = *r.Completed
	}
	if r.List != nil {
		t.List = *r.List
	}
	if r.Tags != nil {
		t.Tags = slices.Clone(*r.Tags)
	}
	if r.Subtasks != nil {
		t.Subtasks = slices.Clone(*r.Subtasks)
	}
}

// NormalizeTags trims labels, drops empty ones and removes duplicates,
// keeping the order of first occurrence. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func normalizeSubtasks(in []Subtask) ([]Subtask, error) {
	out := make([]Subtask, 0, len(in))
	for _, st := range in {
		st.Title = strings.TrimSpace(st.Title)
		if st.Title == "" {
			return nil, ErrSubtaskTitleRequired
		}
		out = append(out, st)
	}
	return out, nil
}

// NullableTime distinguishes an absent JSON field from an explicit null.
type NullableTime struct {
	Set   bool
	Valid bool
	Value time.Time
}

// NewNullableTime returns a set, non-null value.
func NewNullableTime(t time.Time) NullableTime {
	return NullableTime{Set: true, Valid: true, Value: t}
}

// Time returns the value or nil when null.
func (n NullableTime) Time() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Value
	return &t
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// IsZero lets omitzero drop an unset field.
func (n NullableTime) IsZero() bool {
	return !n.Set
}
