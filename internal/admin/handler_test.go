// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

type stubCounter struct {
	rows []subscription.PlanStatusCount
	err  error
}

func (s stubCounter) CountByPlanAndStatus(context.Context) ([]subscription.PlanStatusCount, error) {
	return s.rows, s.err
}

type stubRepo struct{}

func (stubRepo) LedgerTotals(context.Context) (*LedgerTotals, error) {
	return &LedgerTotals{Users: 4, Onboarded: 3, Customers: 20, Transactions: 90}, nil
}

func passthrough(next http.Handler) http.Handler { return next }

func TestSummarize(t *testing.T) {
	s := Summarize([]subscription.PlanStatusCount{
		{Plan: subscription.PlanFree, Status: subscription.StatusActive, Count: 10},
		{Plan: subscription.PlanFree, Status: subscription.StatusCanceled, Count: 2},
		{Plan: subscription.PlanPro, Status: subscription.StatusActive, Count: 3},
		{Plan: subscription.PlanPro, Status: subscription.StatusPastDue, Count: 1},
		{Plan: subscription.PlanBasic, Status: subscription.StatusIncomplete, Count: 5},
	})

	assert.Equal(t, 4, s.Paying)
	assert.Equal(t, 12, s.ByPlan[subscription.PlanFree])
	assert.Equal(t, 4, s.ByPlan[subscription.PlanPro])
	assert.Equal(t, 13, s.ByStatus[subscription.StatusActive])
}

func TestSummarize_EmptyRowsEncodeAsArray(t *testing.T) {
	raw, err := json.Marshal(Summarize(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"paying":0,"by_plan":{},"by_status":{},"rows":[]}`, string(raw))
}

func TestHandler_Overview(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Repo: stubRepo{},
		Subscriptions: stubCounter{rows: []subscription.PlanStatusCount{
			{Plan: subscription.PlanEnterprise, Status: subscription.StatusActive, Count: 2},
		}},
		DBPing: func(context.Context) error { return nil },
	})

	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body OverviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Subscriptions.Paying)
	assert.Equal(t, 20, body.Ledger.Customers)
	assert.True(t, body.Infrastructure.Database.Healthy)
	assert.False(t, body.Infrastructure.Redis.Healthy, "unwired redis reports unhealthy")
	assert.Nil(t, body.Infrastructure.Database.Stats)
}

func TestHandler_SubscriptionsError(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Repo:          stubRepo{},
		Subscriptions: stubCounter{err: errors.New("db down")},
	})

	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats/subscriptions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
