package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTaskRequest_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTaskRequest
		want    CreateTaskRequest
		wantErr error
	}{
		{
			name: "defaults",
			req:  CreateTaskRequest{Title: "  Buy milk "},
			want: CreateTaskRequest{Title: "Buy milk", List: ListPersonal, Tags: []string{}, Subtasks: []Subtask{}},
		},
		{
			name: "legacy tag merged last",
			req:  CreateTaskRequest{Title: "x", List: ListWork, Tag: " Work ", Tags: []string{"Health", "Work", " "}},
			want: CreateTaskRequest{Title: "x", List: ListWork, Tags: []string{"Health", "Work"}, Subtasks: []Subtask{}},
		},
		{
			name: "subtasks trimmed",
			req:  CreateTaskRequest{Title: "x", Subtasks: []Subtask{{Title: " step ", Completed: true}}},
			want: CreateTaskRequest{Title: "x", List: ListPersonal, Tags: []string{}, Subtasks: []Subtask{{Title: "step", Completed: true}}},
		},
		{name: "blank title", req: CreateTaskRequest{Title: " \t"}, wantErr: ErrTitleRequired},
		{name: "unknown list", req: CreateTaskRequest{Title: "x", List: "Errands"}, wantErr: ErrValidation},
		{name: "blank subtask", req: CreateTaskRequest{Title: "x", Subtasks: []Subtask{{Title: ""}}}, wantErr: ErrSubtaskTitleRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.req)
		})
	}
}

func TestUpdateTaskRequest_DueDateJSON(t *testing.T) {
	due := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		body    string
		wantSet bool
		want    *time.Time
	}{
		{name: "absent", body: `{"title":"x"}`},
		{name: "null clears", body: `{"dueDate":null}`, wantSet: true},
		{name: "value", body: `{"dueDate":"2026-10-20T09:00:00Z"}`, wantSet: true, want: &due},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.wantSet, req.DueDate.Set)
			assert.Equal(t, tt.want, req.DueDate.Time())

			task := Task{DueDate: &due}
			req.Apply(&task)
			if tt.wantSet {
				assert.Equal(t, tt.want, task.DueDate)
			} else {
				assert.Equal(t, &due, task.DueDate)
			}
		})
	}
}

func TestUpdateTaskRequest_MarshalOmitsUnsetDueDate(t *testing.T) {
	title := "x"
	data, err := json.Marshal(UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x"}`, string(data))

	data, err = json.Marshal(UpdateTaskRequest{DueDate: NullableTime{Set: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dueDate":null}`, string(data))
}

func TestUpdateTaskRequest_NormalizeAndApply(t *testing.T) {
	tag := "Family"
	title := "  renamed "
	tags := []string{"Work", "Work"}
	req := UpdateTaskRequest{Title: &title, Tag: &tag, Tags: &tags}
	require.NoError(t, req.Normalize())

	task := Task{Title: "old", Description: "keep", List: ListWork, Tags: []string{"Health"}}
	req.Apply(&task)
	assert.Equal(t, "renamed", task.Title)
	assert.Equal(t, "keep", task.Description)
	assert.Equal(t, ListWork, task.List)
	assert.Equal(t, []string{"Work", "Family"}, task.Tags)

	blank := " "
	assert.ErrorIs(t, (&UpdateTaskRequest{Title: &blank}).Normalize(), ErrTitleRequired)
	bad := List("Someday")
	assert.ErrorIs(t, (&UpdateTaskRequest{List: &bad}).Normalize(), ErrValidation)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{}, NormalizeTags(nil))
	assert.Equal(t, []string{"b", "a"}, NormalizeTags([]string{" b", "a", "b ", "", "a"}))
}

func TestErrorKinds(t *testing.T) {
	wrapped := StoreError("error creating task", assert.AnError)

	assert.ErrorIs(t, wrapped, ErrStore)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, KindStore, KindOf(wrapped))

	assert.ErrorIs(t, ErrTaskNotFound, ErrNotFound)
	assert.NotErrorIs(t, ErrTaskNotFound, ErrNoteNotFound)
	assert.Equal(t, KindAuthorization, KindOf(ErrNotOwner))
	assert.Equal(t, Kind(0), KindOf(assert.AnError))
	assert.Equal(t, `invalid list "X"`, InvalidList("X").Error())
}

func TestCreateNoteRequest_Normalize(t *testing.T) {
	assert.ErrorIs(t, (&CreateNoteRequest{}).Normalize(), ErrContentRequired)

	empty := ""
	req := CreateNoteRequest{Content: &empty}
	require.NoError(t, req.Normalize())
	assert.Equal(t, DefaultNoteColor, req.Color)
	assert.Equal(t, &Position{}, req.Position)

	note := StickyNote{Content: "a", Color: "#000000", Position: Position{X: 1, Y: 2}}
	(&UpdateNoteRequest{Content: &empty}).Apply(&note)
	assert.Equal(t, "", note.Content)
	assert.Equal(t, "#000000", note.Color)
	assert.Equal(t, Position{X: 1, Y: 2}, note.Position)
}

func TestTask_Clone(t *testing.T) {
	due := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	orig := Task{ID: "1", DueDate: &due, Tags: []string{"Work"}, Subtasks: []Subtask{{Title: "a"}}}

	c := orig.Clone()
	require.Equal(t, orig, *c)
	c.Tags[0] = "x"
	c.Subtasks[0].Title = "x"
	*c.DueDate = due.Add(time.Hour)

	assert.Equal(t, []string{"Work"}, orig.Tags)
	assert.Equal(t, "a", orig.Subtasks[0].Title)
	assert.Equal(t, due, *orig.DueDate)

	empty := (&Task{}).Clone()
	assert.Equal(t, []string{}, empty.Tags)
	assert.Equal(t, []Subtask{}, empty.Subtasks)
	assert.Nil(t, empty.DueDate)
}
