package market

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "market:version"
	bumpChannel     = "market.bump"
)

// Cache keeps synthesized history in Redis. Every key embeds a global
// version; Bump increments it so all entries go stale at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats counts history lookups served from Redis and from synthesis.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewCache builds the cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Stats reports lookups since the cache was built.
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Version returns the current cache version, starting at 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return c.client.Get(ctx, cacheVersionKey).Int64()
}

// LoadHistory returns the history stored under base for the current
// version, or runs fill and stores its result.
func (c *Cache) LoadHistory(ctx context.Context, base string, fill func() []MarketHistoryPoint) ([]MarketHistoryPoint, error) {
	if c == nil {
		return fill(), nil
	}
	if !c.enabled() {
		c.misses.Add(1)
		return fill(), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}
	key := base + ":" + strconv.FormatInt(ver, 10)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var points []MarketHistoryPoint
		if json.Unmarshal(raw, &points) == nil {
			c.hits.Add(1)
			return points, nil
		}
		// Unreadable entries are replaced below.
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	c.misses.Add(1)
	points := fill()
	if raw, err = json.Marshal(points); err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Bump invalidates every entry and tells other replicas the new version.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other replicas
// until ctx is done.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				// Only move forward; a late message must not roll the version back.
				current, err := c.client.Get(ctx, cacheVersionKey).Int64()
				if err == nil && current >= ver {
					continue
				}
				_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
			}
		}
	}()
	return nil
}

func keyHistory(seed uint64, from, to time.Time) string {
	return strings.Join([]string{"market", "history", strconv.FormatUint(seed, 10), from.Format("2006-01"), to.Format("2006-01")}, ":")
}
