// AngelaMos | 2026
// memory.go

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter. A client can get close to
// 2*MaxRequests through by bursting across a window boundary; that is the
// accepted cost of the fixed window.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

func NewMemoryLimiter(
	sweepInterval time.Duration,
	opts ...MemoryOption,
) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	go l.sweepLoop(sweepInterval)

	return l
}

func (l *MemoryLimiter) Check(
	_ context.Context,
	key string,
	limit Limit,
) (Result, error) {
	if limit.MaxRequests <= 0 || limit.Window <= 0 {
		return Result{}, fmt.Errorf("invalid limit %+v", limit)
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(limit.Window)}
		l.windows[key] = w
	}

	if w.count >= limit.MaxRequests {
		return Result{
			Allowed:           false,
			Remaining:         0,
			ResetTime:         w.resetAt,
			RetryAfterSeconds: retryAfterSeconds(now, w.resetAt),
		}, nil
	}

	w.count++

	return Result{
		Allowed:   true,
		Remaining: limit.MaxRequests - w.count,
		ResetTime: w.resetAt,
	}, nil
}

// Sweep drops every window that has already ended and reports how many
// were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *MemoryLimiter) Close() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

func (l *MemoryLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}
