// AngelaMos | 2026
// limiter.go

// Package ratelimit counts requests per key and logical bucket.
//
// MemoryLimiter keeps its counters in process memory and therefore only
// limits a single instance. Deployments running more than one replica
// should use RedisLimiter (fixed window on a shared counter) or
// GCRALimiter so that every instance sees the same count.
package ratelimit

import (
	"context"
	"math"
	"time"
)

type Limit struct {
	MaxRequests int
	Window      time.Duration
}

type Result struct {
	Allowed           bool
	Remaining         int
	ResetTime         time.Time
	RetryAfterSeconds int
}

type Limiter interface {
	Check(ctx context.Context, key string, limit Limit) (Result, error)
}

func PerMinute(n int) Limit {
	return Limit{MaxRequests: n, Window: time.Minute}
}

func PerHour(n int) Limit {
	return Limit{MaxRequests: n, Window: time.Hour}
}

// BucketKey namespaces an identifier (usually a client IP) with the
// logical bucket it is counted against.
func BucketKey(bucket, id string) string {
	return "ratelimit:" + bucket + ":" + id
}

func retryAfterSeconds(now, reset time.Time) int {
	secs := int(math.Ceil(reset.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Fallback routes to secondary whenever primary returns an error, e.g.
// when Redis is unreachable.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	onError   func(error)
}

func NewFallback(primary, secondary Limiter, onError func(error)) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		onError:   onError,
	}
}

func (f *Fallback) Check(
	ctx context.Context,
	key string,
	limit Limit,
) (Result, error) {
	res, err := f.primary.Check(ctx, key, limit)
	if err == nil {
		return res, nil
	}

	if f.onError != nil {
		f.onError(err)
	}

	return f.secondary.Check(ctx, key, limit)
}
