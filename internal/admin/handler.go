// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

type SubscriptionCounter interface {
	CountByPlanAndStatus(ctx context.Context) ([]subscription.PlanStatusCount, error)
}

type Pinger func(ctx context.Context) error

type HandlerConfig struct {
	Repo          Repository
	Subscriptions SubscriptionCounter
	DBPing        Pinger
	DBStats       func() sql.DBStats
	RedisPing     Pinger
	RedisStats    func() *redis.PoolStats
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.Overview)
		r.Get("/subscriptions", h.Subscriptions)
		r.Get("/infrastructure", h.Infrastructure)
	})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	var (
		resp OverviewResponse
		rows []subscription.PlanStatusCount
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		rows, err = h.cfg.Subscriptions.CountByPlanAndStatus(ctx)
		return err
	})
	g.Go(func() error {
		totals, err := h.cfg.Repo.LedgerTotals(ctx)
		if err != nil {
			return err
		}
		resp.Ledger = *totals
		return nil
	})
	if err := g.Wait(); err != nil {
		core.InternalServerError(w, err)
		return
	}

	resp.Subscriptions = Summarize(rows)
	resp.Infrastructure = h.infrastructure(r.Context())

	core.OK(w, resp)
}

func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.cfg.Subscriptions.CountByPlanAndStatus(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, Summarize(rows))
}

func (h *Handler) Infrastructure(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.infrastructure(r.Context()))
}

func (h *Handler) infrastructure(ctx context.Context) InfrastructureStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return InfrastructureStatus{
		Database: PoolStatus{Healthy: ping(ctx, h.cfg.DBPing), Stats: h.dbStats()},
		Redis:    PoolStatus{Healthy: ping(ctx, h.cfg.RedisPing), Stats: h.redisStats()},
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			HeapAlloc:    mem.HeapAlloc,
			NumGC:        mem.NumGC,
		},
	}
}

func ping(ctx context.Context, p Pinger) bool {
	return p != nil && p(ctx) == nil
}

func (h *Handler) dbStats() *PoolStats {
	if h.cfg.DBStats == nil {
		return nil
	}

	s := h.cfg.DBStats()
	return &PoolStats{
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
		Waits:   s.WaitCount,
		WaitFor: s.WaitDuration.String(),
	}
}

func (h *Handler) redisStats() *PoolStats {
	if h.cfg.RedisStats == nil {
		return nil
	}

	s := h.cfg.RedisStats()
	return &PoolStats{
		Open:    int(s.TotalConns),
		InUse:   int(s.TotalConns - s.IdleConns),
		Idle:    int(s.IdleConns),
		Misses:  s.Misses,
		Timeout: s.Timeouts,
	}
}
