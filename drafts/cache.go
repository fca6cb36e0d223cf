package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	listCacheTTL     = 30 * time.Second
	listCacheTimeout = 300 * time.Millisecond
)

// listCache keeps the per-user draft listings warm in Redis. A cache fault in
// either direction falls back to the database; a payload that no longer
// unmarshals is treated as a miss, never an error.
type listCache struct {
	client *redis.Client
}

func newListCache(client *redis.Client) *listCache {
	if client == nil {
		return nil
	}
	return &listCache{client: client}
}

func (c *listCache) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), listCacheTimeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= listCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, listCacheTimeout)
}

func (c *listCache) key(userID, status string) string {
	if c == nil || c.client == nil || userID == "" {
		return ""
	}
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf("drafts:list:%s:%s", userID, status)
}

func (c *listCache) get(ctx context.Context, userID, status string) ([]DraftRecord, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key := c.key(userID, status)
	if key == "" {
		return nil, false
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var records []DraftRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("drafts: stale list cache payload for %s: %v", key, err)
		return nil, false
	}
	return records, true
}

func (c *listCache) store(ctx context.Context, userID, status string, records []DraftRecord) {
	if c == nil || c.client == nil {
		return
	}
	key := c.key(userID, status)
	if key == "" {
		return
	}

	payload, err := json.Marshal(records)
	if err != nil {
		log.Printf("drafts: marshal list cache payload failed: %v", err)
		return
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, key, payload, listCacheTTL).Err(); err != nil {
		log.Printf("drafts: store list cache failed: %v", err)
	}
}

// invalidate drops every cached listing for the user. Called after any write.
func (c *listCache) invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil || userID == "" {
		return
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	keys := []string{
		c.key(userID, ""),
		c.key(userID, StatusSaved),
		c.key(userID, StatusPublished),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("drafts: invalidate list cache failed: %v", err)
	}
}
