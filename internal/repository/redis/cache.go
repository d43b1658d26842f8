package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/atmanstudio/booking/internal/domain"
)

// dropIndexed deletes every key listed in the index set, then the set.
const dropIndexed = `
local keys = redis.call('SMEMBERS', KEYS[1])
for _, k in ipairs(keys) do
  redis.call('DEL', k)
end
redis.call('DEL', KEYS[1])
return #keys
`

// Cache holds schedule listings for a short TTL. Each listing key is
// recorded in an index set so a single seat change drops all of them.
type Cache struct {
	rdb    *redis.Client
	sf     singleflight.Group
	script *redis.Script
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client, script: redis.NewScript(dropIndexed)}
}

// Schedule returns the cached listing of serviceSlug, or loads and caches
// it. Concurrent misses share one load. Redis failures fall back to load.
func (c *Cache) Schedule(
	ctx context.Context,
	serviceSlug string,
	ttl time.Duration,
	load func(ctx context.Context) ([]domain.ScheduleEvent, error),
) ([]domain.ScheduleEvent, error) {
	key := KeySchedule(serviceSlug)

	if events, ok := c.cached(ctx, key); ok {
		return events, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if events, ok := c.cached(ctx, key); ok {
			return events, nil
		}

		events, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.put(ctx, key, events, ttl)
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]domain.ScheduleEvent), nil
}

func (c *Cache) cached(ctx context.Context, key string) ([]domain.ScheduleEvent, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var events []domain.ScheduleEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false
	}
	return events, true
}

func (c *Cache) put(ctx context.Context, key string, events []domain.ScheduleEvent, ttl time.Duration) {
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}

	_, _ = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, raw, ttl)
		p.SAdd(ctx, KeyScheduleIndex(), key)
		return nil
	})
}

// InvalidateSchedule drops every cached schedule listing.
func (c *Cache) InvalidateSchedule(ctx context.Context) error {
	return c.script.Run(ctx, c.rdb, []string{KeyScheduleIndex()}).Err()
}
