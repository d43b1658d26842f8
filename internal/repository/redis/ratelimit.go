package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Each hit is a sorted-set member scored by its time in ms. Hits older than
// the window are trimmed before counting; a rejected hit is removed again so
// it does not extend the block.
//
// KEYS[1] key; ARGV now_ms, window_ms, limit, member.
// Returns {allowed, count, retry_ms}.
const slidingWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])

if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  if retry < 0 then retry = 0 end
  return {0, count, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, 0}
`

// Decision is the outcome of one booking attempt against the limiter.
type Decision struct {
	Allowed bool
	// Count is the number of attempts admitted within the window.
	Count      int64
	RetryAfter time.Duration
}

// Limiter admits at most limit booking attempts per client within a sliding
// window.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
	clock  clockwork.Clock
}

func NewLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindow),
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock replaces the clock used to timestamp attempts.
func (l *Limiter) WithClock(c clockwork.Clock) *Limiter {
	l.clock = c
	return l
}

// Allow records an attempt by client and reports whether it is admitted.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	const op = "redisrepo.Limiter.Allow"

	res, err := l.script.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + client},
		l.clock.Now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Count:      res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
