// AngelaMos | 2026
// redis.go

package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisLimiter is the fixed-window counter on a shared Redis key, for
// deployments with more than one instance.
type RedisLimiter struct {
	rdb redis.Scripter
	now func() time.Time
}

func NewRedisLimiter(rdb redis.Scripter) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, now: time.Now}
}

func (l *RedisLimiter) Check(
	ctx context.Context,
	key string,
	limit Limit,
) (Result, error) {
	if limit.MaxRequests <= 0 || limit.Window <= 0 {
		return Result{}, fmt.Errorf("invalid limit %+v", limit)
	}

	vals, err := fixedWindowScript.Run(
		ctx,
		l.rdb,
		[]string{key},
		limit.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("fixed window incr: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("fixed window incr: unexpected reply %v", vals)
	}

	// rejected calls still INCR; the key expires with its window
	count, ttlMs := int(vals[0]), vals[1]
	if ttlMs < 0 {
		ttlMs = limit.Window.Milliseconds()
	}

	now := l.now()
	resetAt := now.Add(time.Duration(ttlMs) * time.Millisecond)

	if count > limit.MaxRequests {
		return Result{
			Allowed:           false,
			Remaining:         0,
			ResetTime:         resetAt,
			RetryAfterSeconds: retryAfterSeconds(now, resetAt),
		}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: limit.MaxRequests - count,
		ResetTime: resetAt,
	}, nil
}

// GCRALimiter adapts redis_rate's leaky-bucket limiter to the Limiter
// interface. It smooths bursts instead of counting fixed windows and is
// used for the global API limit. The burst never exceeds the limit being
// checked, so a small bucket cannot borrow the global burst.
type GCRALimiter struct {
	limiter *redis_rate.Limiter
	burst   int
	now     func() time.Time
}

func NewGCRALimiter(rdb *redis.Client, burst int) *GCRALimiter {
	return &GCRALimiter{
		limiter: redis_rate.NewLimiter(rdb),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *GCRALimiter) Check(
	ctx context.Context,
	key string,
	limit Limit,
) (Result, error) {
	burst := limit.MaxRequests
	if l.burst > 0 {
		burst = min(l.burst, limit.MaxRequests)
	}

	res, err := l.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.MaxRequests,
		Burst:  burst,
		Period: limit.Window,
	})
	if err != nil {
		return Result{}, fmt.Errorf("gcra allow: %w", err)
	}

	now := l.now()
	out := Result{
		Allowed:   res.Allowed > 0,
		Remaining: res.Remaining,
		ResetTime: now.Add(res.ResetAfter),
	}
	if !out.Allowed {
		out.RetryAfterSeconds = retryAfterSeconds(now, now.Add(res.RetryAfter))
	}

	return out, nil
}
