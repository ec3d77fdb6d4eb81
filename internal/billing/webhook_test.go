// AngelaMos | 2026
// webhook_test.go

package billing

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

var (
	periodA = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodB = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	periodC = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestWebhook_SubscriptionUpdatedIsIdempotent(t *testing.T) {
	once := newHarness(t)
	twice := newHarness(t)

	payload := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object())

	require.Equal(t, http.StatusOK, once.deliver(t, payload).Code)
	require.Equal(t, http.StatusOK, twice.deliver(t, payload).Code)
	require.Equal(t, http.StatusOK, twice.deliver(t, payload).Code)

	assert.Equal(t, once.store.row(t, "u1"), twice.store.row(t, "u1"))
}

func TestWebhook_ReorderedDuplicatesConvergeWhenLatestArrivesLast(t *testing.T) {
	older := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "past_due", start: periodA, end: periodB,
	}.object())
	latest := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "enterprise", status: "active", start: periodB, end: periodC,
	}.object())

	reference := newHarness(t)
	require.Equal(t, http.StatusOK, reference.deliver(t, latest).Code)
	want := reference.store.row(t, "u1")

	sequences := map[string][][]byte{
		"A B B":   {older, latest, latest},
		"B A A B": {latest, older, older, latest},
		"A B A B": {older, latest, older, latest},
	}

	for name, seq := range sequences {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			for _, payload := range seq {
				require.Equal(t, http.StatusOK, h.deliver(t, payload).Code)
			}
			assert.Equal(t, want, h.store.row(t, "u1"))
		})
	}
}

// Writes are last-write-wins with no version check, so a logically older
// event delivered last overwrites newer state.
func TestWebhook_OlderEventDeliveredLastWins(t *testing.T) {
	h := newHarness(t)

	latest := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "enterprise", status: "active", start: periodB, end: periodC,
	}.object())
	older := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "past_due", start: periodA, end: periodB,
	}.object())

	require.Equal(t, http.StatusOK, h.deliver(t, latest).Code)
	require.Equal(t, http.StatusOK, h.deliver(t, older).Code)

	row := h.store.row(t, "u1")
	assert.Equal(t, subscription.PlanPro, row.Plan)
	assert.Equal(t, subscription.StatusPastDue, row.Status)
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, periodB, *row.CurrentPeriodEnd)
}

func TestWebhook_DeletedAlwaysLeavesCanceledFree(t *testing.T) {
	starts := map[string][]byte{
		"no row": nil,
		"enterprise active": eventPayload(t, KindSubscriptionUpdated, subFixture{
			userID: "u1", plan: "enterprise", status: "active", start: periodA, end: periodB,
		}.object()),
		"pro past due": eventPayload(t, KindSubscriptionUpdated, subFixture{
			userID: "u1", plan: "pro", status: "past_due", start: periodA, end: periodB,
		}.object()),
		"pro cancel at period end": eventPayload(t, KindSubscriptionUpdated, subFixture{
			userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB, cancelAt: true,
		}.object()),
	}

	deleted := eventPayload(t, KindSubscriptionDeleted, subFixture{
		userID: "u1", plan: "pro", status: "canceled", start: periodA, end: periodB,
	}.object())

	for name, start := range starts {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			if start != nil {
				require.Equal(t, http.StatusOK, h.deliver(t, start).Code)
			}
			require.Equal(t, http.StatusOK, h.deliver(t, deleted).Code)

			row := h.store.row(t, "u1")
			assert.Equal(t, subscription.PlanFree, row.Plan)
			assert.Equal(t, subscription.StatusCanceled, row.Status)
			assert.Nil(t, row.StripeSubscriptionID)
			assert.Nil(t, row.CurrentPeriodStart)
			assert.Nil(t, row.CurrentPeriodEnd)
			assert.False(t, row.CancelAtPeriodEnd)
		})
	}
}

func TestWebhook_DowngradeOnDelete(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "enterprise", status: "active", start: periodA, end: periodB,
	}.object())).Code)

	before := h.store.row(t, "u1")
	require.Equal(t, subscription.PlanEnterprise, before.Plan)
	require.NotNil(t, before.StripeSubscriptionID)

	rec := h.deliver(t, eventPayload(t, KindSubscriptionDeleted, subFixture{
		userID: "u1", status: "canceled",
	}.object()))
	require.Equal(t, http.StatusOK, rec.Code)

	after := h.store.row(t, "u1")
	assert.Equal(t, subscription.PlanFree, after.Plan)
	assert.Equal(t, subscription.StatusCanceled, after.Status)
	assert.Nil(t, after.StripeSubscriptionID)
	assert.Equal(t, "cus_u1", after.CustomerID())
}

func TestWebhook_TamperedBodyRejectedWithoutWrite(t *testing.T) {
	h := newHarness(t)

	original := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object())
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   original,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	tampered := bytes.Replace(original, []byte(`"pro"`), []byte(`"enterprise"`), 1)
	require.NotEqual(t, original, tampered)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(tampered))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_MissingSignature(t *testing.T) {
	h := newHarness(t)

	payload := eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object())
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_MissingWebhookSecret(t *testing.T) {
	h := newHarness(t)
	h.provider.webhookSecret = ""

	rec := h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_BillingNotConfigured(t *testing.T) {
	h := newHarness(t)
	h.router = h.build(nil)

	rec := h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_UnknownKindAcknowledged(t *testing.T) {
	h := newHarness(t)

	rec := h.deliver(t, eventPayload(t, "customer.tax_id.created", map[string]any{
		"id": "txi_1",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["received"])
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_UnattributedEventDropped(t *testing.T) {
	h := newHarness(t)

	rec := h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		plan: "pro", status: "active", start: periodA, end: periodB,
	}.object()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_InvoiceEventsDoNotWrite(t *testing.T) {
	h := newHarness(t)

	for _, kind := range []string{KindInvoicePaid, KindInvoiceFailed} {
		rec := h.deliver(t, eventPayload(t, kind, map[string]any{
			"id":           "in_1",
			"customer":     "cus_u1",
			"subscription": "sub_u1",
			"amount_paid":  1900,
			"amount_due":   1900,
			"currency":     "usd",
			"subscription_details": map[string]any{
				"metadata": map[string]any{"user_id": "u1"},
			},
		}))
		assert.Equal(t, http.StatusOK, rec.Code, kind)
	}

	assert.Zero(t, h.store.writeCount())
}

func TestWebhook_StorageFailureReturns500(t *testing.T) {
	h := newHarness(t)
	h.store.upsertErr = errDatabaseDown

	rec := h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "active", start: periodA, end: periodB,
	}.object()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_PlanDerivedFromPriceWhenMetadataMissing(t *testing.T) {
	h := newHarness(t)

	rec := h.deliver(t, eventPayload(t, KindSubscriptionCreated, subFixture{
		userID: "u1", priceID: "price_ent_m", status: "trialing", start: periodA, end: periodB,
	}.object()))
	require.Equal(t, http.StatusOK, rec.Code)

	row := h.store.row(t, "u1")
	assert.Equal(t, subscription.PlanEnterprise, row.Plan)
	assert.Equal(t, subscription.StatusTrialing, row.Status)
	require.NotNil(t, row.CurrentPeriodStart)
	assert.Equal(t, periodA, *row.CurrentPeriodStart)
}

func TestCheckoutToPaidScenario(t *testing.T) {
	h := newHarness(t)

	_, err := h.store.GetByUserID(t.Context(), "u1")
	require.Error(t, err)

	rec := h.checkout(t, "u1", `{"plan":"pro","interval":"monthly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeBody(t, rec)["url"])

	row := h.store.row(t, "u1")
	assert.Equal(t, "cus_u1", row.CustomerID())
	assert.Equal(t, subscription.PlanFree, row.Plan)

	rec = h.deliver(t, eventPayload(t, KindCheckoutCompleted, map[string]any{
		"id":           "cs_test_1",
		"object":       "checkout.session",
		"mode":         "subscription",
		"customer":     "cus_u1",
		"subscription": "sub_u1",
		"metadata": map[string]any{
			"user_id":  "u1",
			"plan":     "pro",
			"interval": "monthly",
		},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	row = h.store.row(t, "u1")
	assert.Equal(t, subscription.StatusActive, row.Status)
	assert.Equal(t, subscription.PlanPro, row.Plan)
	assert.Equal(t, "cus_u1", row.CustomerID())
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.WithinDuration(t, h.now.Add(30*24*time.Hour), *row.CurrentPeriodEnd, time.Second)
}

func TestWebhook_IncompleteExpiredRevertsToFree(t *testing.T) {
	h := newHarness(t)

	rec := h.deliver(t, eventPayload(t, KindSubscriptionUpdated, subFixture{
		userID: "u1", plan: "pro", status: "incomplete_expired", start: periodA, end: periodB,
	}.object()))
	require.Equal(t, http.StatusOK, rec.Code)

	row := h.store.row(t, "u1")
	assert.Equal(t, subscription.PlanFree, row.Plan)
	assert.Equal(t, subscription.StatusIncompleteExpired, row.Status)
	assert.Nil(t, row.StripeSubscriptionID)
	assert.Nil(t, row.CurrentPeriodEnd)
	assert.Equal(t, "cus_u1", row.CustomerID())
}
