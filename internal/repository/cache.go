package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/redis/go-redis/v9"
)

// CachedTaskStore serves ListByOwner from Redis and evicts an owner's entry on
// every mutation made through it. Redis failures fall back to the base store.
type CachedTaskStore struct {
	TaskStore
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedTaskStore wraps base with a per-owner list cache.
func NewCachedTaskStore(base TaskStore, client *redis.Client, ttl time.Duration) *CachedTaskStore {
	if base == nil {
		panic("repository.NewCachedTaskStore: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedTaskStore{TaskStore: base, redis: client, ttl: ttl}
}

func (c *CachedTaskStore) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	return cachedList(ctx, c.redis, tasksCacheKey(owner), c.ttl, func(ctx context.Context) ([]*model.Task, error) {
		return c.TaskStore.ListByOwner(ctx, owner)
	})
}

func (c *CachedTaskStore) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	created, err := c.TaskStore.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, tasksCacheKey(task.Owner))
	return created, nil
}

func (c *CachedTaskStore) Update(ctx context.Context, id, owner string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	updated, err := c.TaskStore.Update(ctx, id, owner, patch)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, tasksCacheKey(owner))
	return updated, nil
}

func (c *CachedTaskStore) SetCompleted(ctx context.Context, id, owner string, expected, next bool) (*model.Task, error) {
	updated, err := c.TaskStore.SetCompleted(ctx, id, owner, expected, next)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, tasksCacheKey(owner))
	return updated, nil
}

func (c *CachedTaskStore) Delete(ctx context.Context, id, owner string) error {
	if err := c.TaskStore.Delete(ctx, id, owner); err != nil {
		return err
	}
	evict(ctx, c.redis, tasksCacheKey(owner))
	return nil
}

// CachedNoteStore is the sticky-note counterpart of CachedTaskStore.
type CachedNoteStore struct {
	NoteStore
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedNoteStore wraps base with a per-owner list cache.
func NewCachedNoteStore(base NoteStore, client *redis.Client, ttl time.Duration) *CachedNoteStore {
	if base == nil {
		panic("repository.NewCachedNoteStore: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedNoteStore{NoteStore: base, redis: client, ttl: ttl}
}

func (c *CachedNoteStore) ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	return cachedList(ctx, c.redis, notesCacheKey(owner), c.ttl, func(ctx context.Context) ([]*model.StickyNote, error) {
		return c.NoteStore.ListByOwner(ctx, owner)
	})
}

func (c *CachedNoteStore) Create(ctx context.Context, note *model.StickyNote) (*model.StickyNote, error) {
	created, err := c.NoteStore.Create(ctx, note)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, notesCacheKey(note.Owner))
	return created, nil
}

func (c *CachedNoteStore) Update(ctx context.Context, id, owner string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	updated, err := c.NoteStore.Update(ctx, id, owner, patch)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, notesCacheKey(owner))
	return updated, nil
}

func (c *CachedNoteStore) Delete(ctx context.Context, id, owner string) error {
	if err := c.NoteStore.Delete(ctx, id, owner); err != nil {
		return err
	}
	evict(ctx, c.redis, notesCacheKey(owner))
	return nil
}

// fillScript stores a list only while the owner's generation still equals the
// one read before the base fetch. KEYS: list, generation. ARGV: generation,
// payload, ttl in milliseconds.
var fillScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// cachedList serves key from Redis or falls back to fetch. A mutation that
// evicts key while fetch runs bumps the generation, and the fetched list is
// then returned without being cached.
func cachedList[T any](ctx context.Context, client *redis.Client, key string, ttl time.Duration, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var cached []T
	if loadCached(ctx, client, key, &cached) {
		return cached, nil
	}

	gen, ok := generation(ctx, client, key)
	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		storeCached(ctx, client, key, gen, items, ttl)
	}
	return items, nil
}

func loadCached(ctx context.Context, client *redis.Client, key string, dst any) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = client.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = client.Del(ctx, key).Err()
		return false
	}
	return true
}

func generation(ctx context.Context, client *redis.Client, key string) (string, bool) {
	if client == nil {
		return "", false
	}
	gen, err := client.Get(ctx, generationKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		return "", false
	}
	return gen, true
}

func storeCached(ctx context.Context, client *redis.Client, key, gen string, v any, ttl time.Duration) {
	if client == nil || ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	ms := max(ttl.Milliseconds(), 1)
	_ = fillScript.Run(ctx, client, []string{key, generationKey(key)}, gen, data, ms).Err()
}

// evict drops key and bumps its generation so in-flight fills are discarded.
func evict(ctx context.Context, client *redis.Client, key string) {
	if client == nil {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
}

func generationKey(key string) string {
	return key + ":gen"
}

func tasksCacheKey(owner string) string {
	return "tasks:" + owner
}

func notesCacheKey(owner string) string {
	return "notes:" + owner
}
