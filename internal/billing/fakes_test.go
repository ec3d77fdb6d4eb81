// AngelaMos | 2026
// fakes_test.go

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/carterperez-dev/ledger-backend/internal/config"
	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

const (
	testSecretKey     = "sk_test_123"
	testWebhookSecret = "whsec_test_secret"
	testUserHeader    = "X-Test-User"
)

var testPrices = map[string]map[string]string{
	"pro":        {"monthly": "price_pro_m", "yearly": "price_pro_y"},
	"enterprise": {"monthly": "price_ent_m"},
}

// memoryStore mirrors the repository's upsert semantics: full state
// overwrite keyed by user id, customer id only replaced when provided.
type memoryStore struct {
	mu        sync.Mutex
	rows      map[string]subscription.Subscription
	writes    int
	upsertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]subscription.Subscription)}
}

func (m *memoryStore) GetByUserID(
	_ context.Context,
	userID string,
) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[userID]
	if !ok {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	return &row, nil
}

func (m *memoryStore) EnsureCustomer(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	row, ok := m.rows[userID]
	if !ok {
		row = *subscription.Implicit(userID)
	}
	if row.StripeCustomerID == nil {
		row.StripeCustomerID = &customerID
	}
	m.rows[userID] = row
	return nil
}

func (m *memoryStore) Upsert(_ context.Context, sub *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}

	sub.Normalize()
	m.writes++

	next := *sub
	if prev, ok := m.rows[sub.UserID]; ok && next.StripeCustomerID == nil {
		next.StripeCustomerID = prev.StripeCustomerID
	}
	m.rows[sub.UserID] = next
	return nil
}

func (m *memoryStore) row(t *testing.T, userID string) subscription.Subscription {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[userID]
	require.True(t, ok, "no subscription row for %s", userID)
	return row
}

func (m *memoryStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type fakeProvider struct {
	*StripeProvider

	mu              sync.Mutex
	customerCalls   int
	sessionCalls    int
	lastSession     CheckoutSessionInput
	createCustomErr error
	sessionErr      error
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	sp, err := NewStripeProvider(config.BillingConfig{
		SecretKey:     testSecretKey,
		WebhookSecret: testWebhookSecret,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return &fakeProvider{StripeProvider: sp}
}

func (f *fakeProvider) CreateCustomer(_ context.Context, userID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.customerCalls++
	if f.createCustomErr != nil {
		return "", f.createCustomErr
	}
	return "cus_" + userID, nil
}

func (f *fakeProvider) CreateCheckoutSession(
	_ context.Context,
	input CheckoutSessionInput,
) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessionCalls++
	f.lastSession = input
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.test/c/cs_test_1",
	}, nil
}

type fakeUsers map[string]string

func (f fakeUsers) Email(_ context.Context, userID string) (string, error) {
	email, ok := f[userID]
	if !ok {
		return "", fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return email, nil
}

// testAuthenticator trusts a user id header in place of a session.
func testAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(testUserHeader)
		if userID == "" {
			core.Unauthorized(w, "")
			return
		}
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type harness struct {
	router   chi.Router
	store    *memoryStore
	provider *fakeProvider
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    newMemoryStore(),
		provider: newFakeProvider(t),
		now:      time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC),
	}
	h.router = h.build(h.provider)
	return h
}

func (h *harness) build(provider Provider) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prices := NewPriceCatalog(testPrices)

	checkout := NewCheckoutService(
		provider,
		h.store,
		fakeUsers{"u1": "owner@shop.test", "u2": "other@shop.test"},
		prices,
		CheckoutConfig{
			SuccessURL: "https://app.test/billing/success",
			CancelURL:  "https://app.test/billing/cancel",
		},
		logger,
	)
	receiver := NewReceiver(provider, h.store, prices, logger,
		WithReceiverClock(func() time.Time { return h.now }))

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewHandler(checkout, receiver).RegisterRoutes(r, testAuthenticator)
	})
	return r
}

func (h *harness) deliver(t *testing.T, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) checkout(t *testing.T, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

var eventSeq int

func eventPayload(t *testing.T, kind string, object map[string]any) []byte {
	t.Helper()
	eventSeq++

	b, err := json.Marshal(map[string]any{
		"id":          fmt.Sprintf("evt_test_%d", eventSeq),
		"object":      "event",
		"type":        kind,
		"created":     time.Now().Unix(),
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return b
}

type subFixture struct {
	userID   string
	plan     string
	priceID  string
	status   string
	start    time.Time
	end      time.Time
	cancelAt bool
}

func (f subFixture) object() map[string]any {
	meta := map[string]any{}
	if f.userID != "" {
		meta["user_id"] = f.userID
	}
	if f.plan != "" {
		meta["plan"] = f.plan
	}

	return map[string]any{
		"id":                   "sub_" + f.userID,
		"object":               "subscription",
		"customer":             "cus_" + f.userID,
		"status":               f.status,
		"cancel_at_period_end": f.cancelAt,
		"metadata":             meta,
		"items": map[string]any{
			"data": []any{
				map[string]any{
					"price":                map[string]any{"id": f.priceID},
					"current_period_start": f.start.Unix(),
					"current_period_end":   f.end.Unix(),
				},
			},
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var errDatabaseDown = errors.New("database is down")
