// AngelaMos | 2026
// service_test.go

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/middleware"
	"github.com/carterperez-dev/ledger-backend/internal/transaction"
)

type stubRepo struct {
	counts     Counts
	totals     []CurrencyTotals
	err        error
	monthStart time.Time
}

func (s *stubRepo) Counts(context.Context, string) (*Counts, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := s.counts
	return &c, nil
}

func (s *stubRepo) Totals(_ context.Context, _ string, monthStart time.Time) ([]CurrencyTotals, error) {
	s.monthStart = monthStart
	return s.totals, nil
}

type stubRecent struct {
	limit int
	txs   []transaction.Transaction
}

func (s *stubRecent) Recent(_ context.Context, _ string, limit int) ([]transaction.Transaction, error) {
	s.limit = limit
	return s.txs, nil
}

func TestMonthStart(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	at := time.Date(2026, 4, 1, 1, 0, 0, 0, nairobi)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(at),
		"01:00 EAT on April 1 is still March in UTC")
}

func TestService_Stats(t *testing.T) {
	repo := &stubRepo{
		counts: Counts{Customers: 3, Transactions: 7},
		totals: []CurrencyTotals{
			{Currency: "KES", Outstanding: decimal.NewFromInt(1500), CollectedThisMonth: decimal.NewFromInt(200)},
			{Currency: "USD", Outstanding: decimal.RequireFromString("99.99")},
		},
	}
	recent := &stubRecent{txs: []transaction.Transaction{{ID: "t1", Type: transaction.TypePayment}}}

	svc := NewService(repo, recent)
	svc.now = func() time.Time { return time.Date(2026, 6, 18, 15, 0, 0, 0, time.UTC) }

	stats, err := svc.Stats(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.CustomerCount)
	assert.Equal(t, 7, stats.TransactionCount)
	assert.Len(t, stats.Currencies, 2)
	assert.Len(t, stats.Recent, 1)
	assert.Equal(t, 10, recent.limit)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), repo.monthStart)
}

func TestService_StatsEmptyAccount(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubRecent{})

	stats, err := svc.Stats(context.Background(), "u1")
	require.NoError(t, err)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"customer_count":0,"transaction_count":0,"currencies":[],"recent_transactions":[]}`,
		string(raw))
}

func TestHandler_Error(t *testing.T) {
	svc := NewService(&stubRepo{err: errors.New("db down")}, &stubRecent{})

	r := chi.NewRouter()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{UserID: "u1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	NewHandler(svc).RegisterRoutes(r, auth, func(next http.Handler) http.Handler { return next })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
