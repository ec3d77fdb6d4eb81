// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/config"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, config.RedisConfig{URL: "redis://" + mr.Addr() + "/0", PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Ping(ctx))
	assert.EqualValues(t, 4, r.Client.Options().PoolSize)

	mr.Close()
	assert.Error(t, r.Ping(ctx))
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "memcached://nope"})
	assert.ErrorContains(t, err, "parse redis url")
}

func TestRedis_RegisterPoolMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	reg := prometheus.NewRegistry()
	require.NoError(t, r.RegisterPoolMetrics(reg))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, f := range families {
		m := f.GetMetric()[0]
		if g := m.GetGauge(); g != nil {
			got[f.GetName()] = g.GetValue()
		} else {
			got[f.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.Contains(t, got, "ledger_redis_pool_connections")
	assert.Contains(t, got, "ledger_redis_pool_timeouts_total")
	assert.GreaterOrEqual(t, got["ledger_redis_pool_connections"], float64(1), "ping opened a connection")

	assert.Error(t, r.RegisterPoolMetrics(reg), "double registration")
}
