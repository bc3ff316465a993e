package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTaskStore records how often the backing list is hit.
type countingTaskStore struct {
	TaskStore
	lists int
}

func (c *countingTaskStore) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	c.lists++
	return c.TaskStore.ListByOwner(ctx, owner)
}

type countingNoteStore struct {
	NoteStore
	lists int
}

func (c *countingNoteStore) ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	c.lists++
	return c.NoteStore.ListByOwner(ctx, owner)
}

// pausingTaskStore holds its first ListByOwner after the base read returns,
// until release is closed.
type pausingTaskStore struct {
	TaskStore
	calls   atomic.Int32
	fetched chan struct{}
	release chan struct{}
}

func (p *pausingTaskStore) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	tasks, err := p.TaskStore.ListByOwner(ctx, owner)
	if p.calls.Add(1) == 1 {
		close(p.fetched)
		<-p.release
	}
	return tasks, err
}

type pausingNoteStore struct {
	NoteStore
	calls   atomic.Int32
	fetched chan struct{}
	release chan struct{}
}

func (p *pausingNoteStore) ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	notes, err := p.NoteStore.ListByOwner(ctx, owner)
	if p.calls.Add(1) == 1 {
		close(p.fetched)
		<-p.release
	}
	return notes, err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedTaskStore_MissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &countingTaskStore{TaskStore: NewMemoryTaskStore()}
	_, err := base.Create(ctx, &model.Task{Title: "Write code", Owner: "alice"})
	require.NoError(t, err)

	cache := NewCachedTaskStore(base, client, time.Minute)

	first, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists("tasks:alice"))

	second, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Title, second[0].Title)
	assert.Equal(t, 1, base.lists)
}

func TestCachedTaskStore_MutationsEvict(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &countingTaskStore{TaskStore: NewMemoryTaskStore()}
	cache := NewCachedTaskStore(base, client, time.Minute)

	created, err := cache.Create(ctx, &model.Task{Title: "first", Owner: "alice"})
	require.NoError(t, err)

	_, err = cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.True(t, mr.Exists("tasks:alice"))

	_, err = cache.SetCompleted(ctx, created.ID, "alice", false, true)
	require.NoError(t, err)
	assert.False(t, mr.Exists("tasks:alice"))

	tasks, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)

	title := "renamed"
	_, err = cache.Update(ctx, created.ID, "alice", &model.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.False(t, mr.Exists("tasks:alice"))

	_, err = cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, cache.Delete(ctx, created.ID, "alice"))
	assert.False(t, mr.Exists("tasks:alice"))

	assert.Equal(t, 3, base.lists)
}

func TestCachedTaskStore_CorruptEntryFallsBack(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &countingTaskStore{TaskStore: NewMemoryTaskStore()}
	cache := NewCachedTaskStore(base, client, time.Minute)

	require.NoError(t, mr.Set("tasks:alice", "not-json"))

	tasks, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, 1, base.lists)
}

func TestCachedTaskStore_NilClientPassesThrough(t *testing.T) {
	ctx := context.Background()
	base := &countingTaskStore{TaskStore: NewMemoryTaskStore()}
	cache := NewCachedTaskStore(base, nil, time.Minute)

	_, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, base.lists)
}

func TestCachedNoteStore_MissHitEvict(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &countingNoteStore{NoteStore: NewMemoryNoteStore()}
	cache := NewCachedNoteStore(base, client, time.Minute)

	created, err := cache.Create(ctx, &model.StickyNote{Content: "hello", Owner: "alice", Color: model.DefaultNoteColor})
	require.NoError(t, err)

	_, err = cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, base.lists)
	assert.True(t, mr.Exists("notes:alice"))

	_, err = cache.Update(ctx, created.ID, "alice", &model.UpdateNoteRequest{Color: "#e3f2fd"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("notes:alice"))

	notes, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "#e3f2fd", notes[0].Color)
	assert.Equal(t, 2, base.lists)
}

func TestCachedTaskStore_FillDiscardedAfterConcurrentCreate(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &pausingTaskStore{
		TaskStore: NewMemoryTaskStore(),
		fetched:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	cache := NewCachedTaskStore(base, client, time.Minute)

	var wg sync.WaitGroup
	var stale []*model.Task
	wg.Add(1)
	go func() {
		defer wg.Done()
		stale, _ = cache.ListByOwner(ctx, "alice")
	}()

	<-base.fetched
	created, err := cache.Create(ctx, &model.Task{Title: "acknowledged", Owner: "alice"})
	require.NoError(t, err)
	close(base.release)
	wg.Wait()

	assert.Empty(t, stale)
	assert.False(t, mr.Exists("tasks:alice"))

	tasks, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.True(t, mr.Exists("tasks:alice"))
}

func TestCachedNoteStore_FillDiscardedAfterConcurrentDelete(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &pausingNoteStore{
		NoteStore: NewMemoryNoteStore(),
		fetched:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	note, err := base.NoteStore.Create(ctx, &model.StickyNote{Content: "gone soon", Owner: "alice"})
	require.NoError(t, err)
	cache := NewCachedNoteStore(base, client, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = cache.ListByOwner(ctx, "alice")
	}()

	<-base.fetched
	require.NoError(t, cache.Delete(ctx, note.ID, "alice"))
	close(base.release)
	wg.Wait()

	assert.False(t, mr.Exists("notes:alice"))
	notes, err := cache.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCachedTaskStore_EvictBumpsGeneration(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	cache := NewCachedTaskStore(NewMemoryTaskStore(), client, time.Minute)

	_, err := cache.Create(ctx, &model.Task{Title: "one", Owner: "alice"})
	require.NoError(t, err)
	_, err = cache.Create(ctx, &model.Task{Title: "two", Owner: "alice"})
	require.NoError(t, err)

	gen, err := mr.Get("tasks:alice:gen")
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
}
