// AngelaMos | 2026
// service_test.go

package customfield

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

type memoryRepo struct {
	mu   sync.Mutex
	defs map[string]*Definition
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{defs: make(map[string]*Definition)}
}

func (m *memoryRepo) Create(_ context.Context, def *Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.defs {
		if d.UserID == def.UserID && d.Entity == def.Entity && d.Key == def.Key {
			return core.ErrDuplicateKey
		}
	}
	cp := *def
	m.defs[def.ID] = &cp
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id, userID string) (*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok || d.UserID != userID {
		return nil, core.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, userID string, entity Entity) ([]Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Definition
	for _, d := range m.defs {
		if d.UserID == userID && (entity == "" || d.Entity == entity) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, def *Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[def.ID]
	if !ok || d.UserID != def.UserID {
		return core.ErrNotFound
	}
	cp := *def
	m.defs[def.ID] = &cp
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok || d.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.defs, id)
	return nil
}

type planGate struct {
	plan subscription.Plan
}

func (g planGate) RequireFeature(
	_ context.Context,
	_ string,
	feature string,
) (*subscription.Decision, error) {
	allowed := feature == subscription.FeatureCustomFields &&
		g.plan.Rank() >= subscription.PlanPro.Rank()
	d := &subscription.Decision{Allowed: allowed}
	if !allowed {
		d.UpgradeRequired = subscription.PlanPro
	}
	return d, nil
}

func newTestService(plan subscription.Plan) *Service {
	return NewService(newMemoryRepo(), planGate{plan: plan})
}

func TestService_CreateValidatesKeyAndOptions(t *testing.T) {
	svc := newTestService(subscription.PlanPro)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "Loyalty Tier", Label: "Tier", Type: "text",
	})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "tier", Label: "Tier", Type: "select",
	})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "note", Label: "Note", Type: "text", Options: []string{"a"},
	})
	assertStatus(t, err, http.StatusBadRequest)

	def, err := svc.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "tier", Label: "Tier", Type: "select",
		Options: []string{"gold", " silver ", "gold", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, StringList{"gold", "silver"}, def.Options)

	_, err = svc.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "tier", Label: "Tier again", Type: "text",
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestService_OwnerScoped(t *testing.T) {
	svc := newTestService(subscription.PlanPro)
	ctx := context.Background()

	def, err := svc.Create(ctx, "owner", CreateRequest{
		Entity: "transaction", Key: "reference", Label: "Reference", Type: "text",
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", def.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "intruder", def.ID), core.ErrNotFound)
	assert.NoError(t, svc.Delete(ctx, "owner", def.ID))
}

func TestValidate(t *testing.T) {
	defs := []Definition{
		{Key: "note", Type: TypeText},
		{Key: "visits", Type: TypeNumber},
		{Key: "birthday", Type: TypeDate},
		{Key: "tier", Type: TypeSelect, Options: StringList{"gold", "silver"}},
	}

	tests := []struct {
		name    string
		values  map[string]any
		want    Values
		wantErr bool
	}{
		{
			name:   "all types",
			values: map[string]any{"note": "hi", "visits": 3.5, "birthday": "1990-02-01", "tier": "gold"},
			want:   Values{"note": "hi", "visits": json.Number("3.5"), "birthday": "1990-02-01", "tier": "gold"},
		},
		{name: "numeric string", values: map[string]any{"visits": "12"}, want: Values{"visits": json.Number("12")}},
		{name: "null dropped", values: map[string]any{"note": nil}, want: Values{}},
		{name: "unknown key", values: map[string]any{"color": "red"}, wantErr: true},
		{name: "text wrong type", values: map[string]any{"note": 5.0}, wantErr: true},
		{name: "bad number", values: map[string]any{"visits": "many"}, wantErr: true},
		{name: "bad date", values: map[string]any{"birthday": "01/02/1990"}, wantErr: true},
		{name: "option not allowed", values: map[string]any{"tier": "bronze"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(defs, tc.values)
			if tc.wantErr {
				assertStatus(t, err, http.StatusBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestService_ValuesForWriteRequiresFeature(t *testing.T) {
	ctx := context.Background()

	free := newTestService(subscription.PlanFree)
	values, err := free.ValuesForWrite(ctx, "u1", EntityCustomer, nil)
	require.NoError(t, err, "no custom values needs no feature")
	assert.Nil(t, values)

	_, err = free.ValuesForWrite(ctx, "u1", EntityCustomer, map[string]any{"note": "x"})
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
	assert.Equal(t, subscription.PlanPro, appErr.Details["upgradeRequired"])

	pro := newTestService(subscription.PlanPro)
	_, err = pro.Create(ctx, "u1", CreateRequest{
		Entity: "customer", Key: "note", Label: "Note", Type: "text",
	})
	require.NoError(t, err)

	values, err = pro.ValuesForWrite(ctx, "u1", EntityCustomer, map[string]any{"note": "x"})
	require.NoError(t, err)
	assert.Equal(t, Values{"note": "x"}, values)

	_, err = pro.ValuesForWrite(ctx, "u1", EntityTransaction, map[string]any{"note": "x"})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestValues_Scan(t *testing.T) {
	var v Values
	require.NoError(t, v.Scan([]byte(`{"note":"hi","visits":3}`)))
	assert.Equal(t, "hi", v["note"])

	var empty Values
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)

	raw, err := Values(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), raw)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.StatusCode)
}
