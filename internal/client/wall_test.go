package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteWall(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	wall := NewNoteWall(newAPI(t, srv, "alice"), discardLogger())

	first, err := wall.Add(ctx, &model.CreateNoteRequest{Content: strPtr("first")})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultNoteColor, first.Color)

	second, err := wall.Add(ctx, &model.CreateNoteRequest{Content: strPtr("second"), Color: "#e3f2fd"})
	require.NoError(t, err)

	notes := wall.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)

	moved, err := wall.Update(ctx, first.ID, &model.UpdateNoteRequest{Position: &model.Position{X: 40, Y: 12}})
	require.NoError(t, err)
	assert.Equal(t, "first", moved.Content)
	assert.Equal(t, model.Position{X: 40, Y: 12}, wall.Notes()[1].Position)

	fresh := NewNoteWall(newAPI(t, srv, "alice"), discardLogger())
	require.NoError(t, fresh.Refresh(ctx))
	assert.Equal(t, wall.Notes(), fresh.Notes())

	require.NoError(t, wall.Delete(ctx, second.ID))
	require.Len(t, wall.Notes(), 1)
	assert.Equal(t, first.ID, wall.Notes()[0].ID)
}

func TestNoteWall_FailuresLeaveStateUnchanged(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	wall := NewNoteWall(newAPI(t, srv, "alice"), discardLogger())
	note, err := wall.Add(ctx, &model.CreateNoteRequest{Content: strPtr("keep")})
	require.NoError(t, err)
	before := wall.Notes()

	var apiErr *APIError
	_, err = wall.Add(ctx, &model.CreateNoteRequest{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "content is required", apiErr.Message)

	intruder := NewNoteWall(newAPI(t, srv, "mallory"), discardLogger())
	err = intruder.Delete(ctx, note.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	assert.Equal(t, before, wall.Notes())
}

func TestAPI_RejectsMissingToken(t *testing.T) {
	srv := newServer(t)
	api := NewAPI(srv.URL, "", WithHTTPClient(srv.Client()))

	_, err := api.ListTasks(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "no token, authorization denied", apiErr.Message)
}
