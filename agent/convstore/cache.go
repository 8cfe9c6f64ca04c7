package convstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

// CachedStore wraps a Store with a per-session cache, populated lazily from
// the store on first reference and updated on each save. A small in-process
// map serves same-process repeat reads within a turn; Redis serves
// cross-process reuse (multiple orchestrator workers sharing one Temporal
// task queue).
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration

	mu    sync.RWMutex
	local map[string]Session
}

// NewCachedStore wraps inner. rdb may be nil, in which case only the
// in-process map is used (suitable for a single-worker deployment or tests).
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedStore{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		local: make(map[string]Session),
	}
}

func cacheKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Load returns the cached session if present, else falls through to inner
// and populates both cache layers.
func (c *CachedStore) Load(ctx context.Context, userID, sessionID string) (Session, error) {
	key := cacheKey(userID, sessionID)

	c.mu.RLock()
	if sess, ok := c.local[key]; ok {
		c.mu.RUnlock()
		return sess, nil
	}
	c.mu.RUnlock()

	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			var sess Session
			if jsonErr := json.Unmarshal(raw, &sess); jsonErr == nil {
				c.storeLocal(key, sess)
				return sess, nil
			}
		}
	}

	sess, err := c.inner.Load(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	c.storeLocal(key, sess)
	c.storeRedis(ctx, key, sess)
	return sess, nil
}

// Save delegates to inner, then reloads and refreshes both cache layers so
// subsequent reads in the same turn observe the merged result rather than a
// stale pre-save snapshot.
func (c *CachedStore) Save(ctx context.Context, userID, sessionID string, newMessages []model.Message, newToolOutputs []ToolOutput, title string) error {
	if err := c.inner.Save(ctx, userID, sessionID, newMessages, newToolOutputs, title); err != nil {
		return err
	}
	sess, err := c.inner.Load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	key := cacheKey(userID, sessionID)
	c.storeLocal(key, sess)
	c.storeRedis(ctx, key, sess)
	return nil
}

// Delete delegates to inner and invalidates both cache layers.
func (c *CachedStore) Delete(ctx context.Context, userID, sessionID string) error {
	if err := c.inner.Delete(ctx, userID, sessionID); err != nil {
		return err
	}
	c.Invalidate(ctx, userID, sessionID)
	return nil
}

// ListSessions delegates to inner; list results are not cached since they
// span every session for a user rather than a single session's hot path.
func (c *CachedStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	return c.inner.ListSessions(ctx, userID)
}

func (c *CachedStore) storeLocal(key string, sess Session) {
	c.mu.Lock()
	c.local[key] = sess
	c.mu.Unlock()
}

func (c *CachedStore) storeRedis(ctx context.Context, key string, sess Session) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops the cached entry for a session, forcing the next Load to
// hit the backing store. Used after Delete.
func (c *CachedStore) Invalidate(ctx context.Context, userID, sessionID string) {
	key := cacheKey(userID, sessionID)
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, key).Err()
	}
}
