// AngelaMos | 2026
// service_test.go

package transaction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/customer"
	"github.com/carterperez-dev/ledger-backend/internal/customfield"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

const (
	ownerCustomerID = "1f7d9a0e-6a53-4a3f-9c0e-6f4f1f2b8a01"
	otherCustomerID = "2b8e0c1d-7b64-4b40-8d1f-7a5a2a3c9b02"
)

type memoryRepo struct {
	mu  sync.Mutex
	txs map[string]*Transaction
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{txs: make(map[string]*Transaction)}
}

func (m *memoryRepo) Create(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = t.OccurredAt
	t.UpdatedAt = t.OccurredAt
	cp := *t
	m.txs[t.ID] = &cp
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id, userID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok || t.UserID != userID {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) matching(userID string, f Filter) []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	for _, t := range m.txs {
		if t.UserID != userID ||
			(f.CustomerID != "" && t.CustomerID != f.CustomerID) ||
			(f.Type != "" && t.Type != f.Type) ||
			(f.From != nil && t.OccurredAt.Before(*f.From)) ||
			(f.To != nil && !t.OccurredAt.Before(*f.To)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out
}

func (m *memoryRepo) List(_ context.Context, userID string, params ListParams) ([]Transaction, int, error) {
	params.Normalize()
	all := m.matching(userID, params.Filter)
	start := min(params.Offset(), len(all))
	end := min(start+params.PageSize, len(all))
	return all[start:end], len(all), nil
}

func (m *memoryRepo) Update(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.txs[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.ErrNotFound
	}
	cp := *t
	m.txs[t.ID] = &cp
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *memoryRepo) Stream(_ context.Context, userID string, f Filter, fn func(*Transaction) error) error {
	for _, t := range m.matching(userID, f) {
		if err := fn(&t); err != nil {
			return err
		}
	}
	return nil
}

type customerDirectory map[string]*customer.Customer

func (d customerDirectory) Lookup(_ context.Context, userID, id string) (*customer.Customer, error) {
	c, ok := d[id]
	if !ok || c.UserID != userID {
		return nil, core.ErrNotFound
	}
	return c, nil
}

type allowValues struct{}

func (allowValues) ValuesForWrite(
	_ context.Context,
	_ string,
	_ customfield.Entity,
	values map[string]any,
) (customfield.Values, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return customfield.Values(values), nil
}

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	customers := customerDirectory{
		ownerCustomerID: {ID: ownerCustomerID, UserID: "u1", Name: "Acme", Currency: "KES"},
		otherCustomerID: {ID: otherCustomerID, UserID: "u2", Name: "Globex", Currency: "USD"},
	}
	svc := NewService(repo, customers, allowValues{})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestService_CreateInheritsCustomerCurrency(t *testing.T) {
	svc, _ := newTestService()

	tx, err := svc.Create(context.Background(), "u1", CreateRequest{
		CustomerID: ownerCustomerID,
		Type:       "credit",
		Amount:     decimal.RequireFromString("250.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "KES", tx.Currency)
	assert.Equal(t, "Acme", tx.CustomerName)
	assert.Equal(t, fixedNow, tx.OccurredAt)
	assert.Nil(t, tx.Description)
}

func TestService_CreateRejects(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		req    CreateRequest
		status int
	}{
		{
			name:   "currency mismatch",
			req:    CreateRequest{CustomerID: ownerCustomerID, Type: "credit", Amount: decimal.NewFromInt(5), Currency: "USD"},
			status: http.StatusBadRequest,
		},
		{
			name:   "zero amount",
			req:    CreateRequest{CustomerID: ownerCustomerID, Type: "payment"},
			status: http.StatusBadRequest,
		},
		{
			name:   "negative amount",
			req:    CreateRequest{CustomerID: ownerCustomerID, Type: "payment", Amount: decimal.NewFromInt(-1)},
			status: http.StatusBadRequest,
		},
		{
			name:   "too precise",
			req:    CreateRequest{CustomerID: ownerCustomerID, Type: "credit", Amount: decimal.RequireFromString("1.00001")},
			status: http.StatusBadRequest,
		},
		{
			name:   "another user's customer",
			req:    CreateRequest{CustomerID: otherCustomerID, Type: "credit", Amount: decimal.NewFromInt(5)},
			status: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", tc.req)
			appErr, ok := core.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tc.status, appErr.StatusCode)
		})
	}
	assert.Empty(t, repo.txs)
}

func TestService_CurrencyMatchIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), "u1", CreateRequest{
		CustomerID: ownerCustomerID,
		Type:       "credit",
		Amount:     decimal.NewFromInt(5),
		Currency:   "kes",
	})
	assert.NoError(t, err)
}

func TestService_UpdateAndOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tx, err := svc.Create(ctx, "u1", CreateRequest{
		CustomerID:  ownerCustomerID,
		Type:        "credit",
		Amount:      decimal.NewFromInt(100),
		Description: "invoice 7",
	})
	require.NoError(t, err)

	payment := "payment"
	amount := decimal.RequireFromString("40.5")
	updated, err := svc.Update(ctx, "u1", tx.ID, UpdateRequest{Type: &payment, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, TypePayment, updated.Type)
	assert.True(t, updated.Signed().Equal(decimal.RequireFromString("-40.5")))
	require.NotNil(t, updated.Description)
	assert.Equal(t, "invoice 7", *updated.Description)

	bad := decimal.Zero
	_, err = svc.Update(ctx, "u1", tx.ID, UpdateRequest{Amount: &bad})
	assert.Error(t, err)

	_, err = svc.Get(ctx, "u2", tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", tx.ID), core.ErrNotFound)
	assert.NoError(t, svc.Delete(ctx, "u1", tx.ID))
}

func TestService_Recent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := range 12 {
		at := fixedNow.Add(time.Duration(i) * time.Hour)
		_, err := svc.Create(ctx, "u1", CreateRequest{
			CustomerID: ownerCustomerID,
			Type:       "credit",
			Amount:     decimal.NewFromInt(int64(i + 1)),
			OccurredAt: &at,
		})
		require.NoError(t, err)
	}

	recent, err := svc.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.True(t, recent[0].Amount.Equal(decimal.NewFromInt(12)), "newest first")
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, f Filter)
	}{
		{name: "empty", query: "", check: func(t *testing.T, f Filter) {
			assert.Equal(t, Filter{}, f)
		}},
		{name: "customer and type", query: "customer_id=" + ownerCustomerID + "&type=payment", check: func(t *testing.T, f Filter) {
			assert.Equal(t, ownerCustomerID, f.CustomerID)
			assert.Equal(t, TypePayment, f.Type)
		}},
		{name: "to date is inclusive", query: "from=2026-03-01&to=2026-03-31", check: func(t *testing.T, f Filter) {
			require.NotNil(t, f.From)
			require.NotNil(t, f.To)
			assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *f.To)
		}},
		{name: "bad customer", query: "customer_id=abc", wantErr: true},
		{name: "bad type", query: "type=refund", wantErr: true},
		{name: "bad date", query: "from=03/01/2026", wantErr: true},
		{name: "inverted range", query: "from=2026-04-01&to=2026-03-01", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/transactions?"+tc.query, nil)
			f, err := ParseFilter(r)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, f)
		})
	}
}

func TestHandler_Create(t *testing.T) {
	svc, _ := newTestService()

	r := chi.NewRouter()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{UserID: "u1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	NewHandler(svc).RegisterRoutes(r, auth, func(next http.Handler) http.Handler { return next })

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"string amount", `{"customer_id":"` + ownerCustomerID + `","type":"credit","amount":"12.50"}`, http.StatusCreated},
		{"number amount", `{"customer_id":"` + ownerCustomerID + `","type":"payment","amount":3}`, http.StatusCreated},
		{"bad type", `{"customer_id":"` + ownerCustomerID + `","type":"refund","amount":3}`, http.StatusBadRequest},
		{"bad customer id", `{"customer_id":"nope","type":"credit","amount":3}`, http.StatusBadRequest},
		{"unknown customer", `{"customer_id":"` + otherCustomerID + `","type":"credit","amount":3}`, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}
