// AngelaMos | 2026
// gate_test.go

package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
)

type fakeReader struct {
	rows map[string]*Subscription
	err  error
}

func (f *fakeReader) GetByUserID(_ context.Context, userID string) (*Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.rows[userID]
	if !ok {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

var testFeatures = map[string][]string{
	"free":       {"customers", "transactions", "dashboard"},
	"basic":      {"customers", "transactions", "dashboard", "export"},
	"pro":        {"customers", "transactions", "dashboard", "export", "custom_fields"},
	"enterprise": {"customers", "transactions", "dashboard", "export", "custom_fields", "api_access"},
}

func TestGate_MatchesFeatureTable(t *testing.T) {
	table := NewStaticFeatureTable(testFeatures)
	reader := &fakeReader{rows: map[string]*Subscription{}}
	for _, p := range AllPlans {
		reader.rows[string(p)] = &Subscription{UserID: string(p), Plan: p, Status: StatusActive}
	}
	gate := NewGate(reader, table)

	features := []string{"customers", "export", "custom_fields", "api_access", "nonexistent"}
	for _, p := range AllPlans {
		for _, feature := range features {
			t.Run(string(p)+"/"+feature, func(t *testing.T) {
				decision, err := gate.RequireFeature(context.Background(), string(p), feature)
				require.NoError(t, err)

				want := slices.Contains(testFeatures[string(p)], feature)
				assert.Equal(t, want, decision.Allowed)
				assert.Equal(t, p, decision.Subscription.Plan)
			})
		}
	}
}

func TestGate_MissingRowBehavesAsFree(t *testing.T) {
	table := NewStaticFeatureTable(testFeatures)
	reader := &fakeReader{rows: map[string]*Subscription{
		"free-user": {UserID: "free-user", Plan: PlanFree, Status: StatusActive},
	}}
	gate := NewGate(reader, table)

	for _, feature := range []string{"customers", "export", "custom_fields", "api_access"} {
		withRow, err := gate.RequireFeature(context.Background(), "free-user", feature)
		require.NoError(t, err)
		noRow, err := gate.RequireFeature(context.Background(), "ghost", feature)
		require.NoError(t, err)

		assert.Equal(t, withRow.Allowed, noRow.Allowed, feature)
		assert.Equal(t, withRow.UpgradeRequired, noRow.UpgradeRequired, feature)
		assert.Equal(t, PlanFree, noRow.Subscription.Plan)
	}
}

func TestGate_UpgradeRequiredIsLowestPlanAbove(t *testing.T) {
	table := NewStaticFeatureTable(testFeatures)
	reader := &fakeReader{rows: map[string]*Subscription{
		"basic": {UserID: "basic", Plan: PlanBasic, Status: StatusActive},
	}}
	gate := NewGate(reader, table)

	tests := []struct {
		user    string
		feature string
		want    Plan
	}{
		{"ghost", "export", PlanBasic},
		{"ghost", "custom_fields", PlanPro},
		{"basic", "custom_fields", PlanPro},
		{"basic", "api_access", PlanEnterprise},
		{"basic", "nonexistent", ""},
	}

	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.feature, func(t *testing.T) {
			decision, err := gate.RequireFeature(context.Background(), tt.user, tt.feature)
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tt.want, decision.UpgradeRequired)
		})
	}
}

func TestGate_CanceledRowIsFree(t *testing.T) {
	sub := &Subscription{UserID: "u", Plan: PlanEnterprise, Status: StatusActive}
	sub.Cancel()

	gate := NewGate(
		&fakeReader{rows: map[string]*Subscription{"u": sub}},
		NewStaticFeatureTable(testFeatures),
	)

	decision, err := gate.RequireFeature(context.Background(), "u", "custom_fields")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, PlanPro, decision.UpgradeRequired)
}

func TestGate_ReaderErrorPropagates(t *testing.T) {
	gate := NewGate(
		&fakeReader{err: errors.New("connection refused")},
		NewStaticFeatureTable(testFeatures),
	)

	_, err := gate.RequireFeature(context.Background(), "u", "export")
	require.Error(t, err)
}

func TestGateMiddleware(t *testing.T) {
	gate := NewGate(
		&fakeReader{rows: map[string]*Subscription{
			"pro": {UserID: "pro", Plan: PlanPro, Status: StatusActive},
		}},
		NewStaticFeatureTable(testFeatures),
	)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := gate.Middleware("custom_fields")(ok)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middleware.WithClaims(req.Context(),
			&middleware.AccessTokenClaims{UserID: "ghost"}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pro", body["upgradeRequired"])
		assert.NotEmpty(t, body["error"])
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middleware.WithClaims(req.Context(),
			&middleware.AccessTokenClaims{UserID: "pro"}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}
