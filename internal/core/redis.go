// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/ledger-backend/internal/config"
)

const (
	redisPingTimeout = 5 * time.Second
	redisIOTimeout   = 2 * time.Second
)

// Redis backs the rate limiter, token blacklist and OTP store.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	r := &Redis{Client: redis.NewClient(opts)}
	if err := r.Ping(ctx); err != nil {
		_ = r.Close() //nolint:errcheck // cleanup on connection failure
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return r, nil
}

func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Ping is also the readiness check for the redis dependency.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

// RegisterPoolMetrics exposes the client pool counters under
// ledger_redis_pool_*. Values are read at scrape time.
func (r *Redis) RegisterPoolMetrics(reg prometheus.Registerer) error {
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "redis_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(r.Client.PoolStats())) })
	}
	counter := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "redis_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(r.Client.PoolStats())) })
	}

	collectors := []prometheus.Collector{
		gauge("connections", "Open connections in the pool.",
			func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		gauge("idle_connections", "Idle connections in the pool.",
			func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		counter("hits_total", "Times a free connection was found in the pool.",
			func(s *redis.PoolStats) uint32 { return s.Hits }),
		counter("misses_total", "Times a new connection had to be dialed.",
			func(s *redis.PoolStats) uint32 { return s.Misses }),
		counter("timeouts_total", "Times waiting for a connection timed out.",
			func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register redis pool metrics: %w", err)
		}
	}
	return nil
}
