// AngelaMos | 2026
// webhook.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

const tracerName = "ledger/billing"

var webhookEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "billing_webhook_events_total",
		Help:      "Verified billing webhook events by type and outcome.",
	},
	[]string{"type", "outcome"},
)

const (
	outcomeApplied      = "applied"
	outcomeLogged       = "logged"
	outcomeIgnored      = "ignored"
	outcomeUnattributed = "unattributed"
	outcomeMalformed    = "malformed"
	outcomeFailed       = "failed"
)

type SubscriptionWriter interface {
	Upsert(ctx context.Context, sub *subscription.Subscription) error
}

// Receiver verifies webhook deliveries and applies them to the
// subscription row of the attributed user. Every write is a full-state
// upsert keyed by user id, so redelivery is harmless.
type Receiver struct {
	provider Provider
	store    SubscriptionWriter
	prices   *PriceCatalog
	logger   *slog.Logger
	now      func() time.Time
}

type ReceiverOption func(*Receiver)

func WithReceiverClock(now func() time.Time) ReceiverOption {
	return func(r *Receiver) {
		r.now = now
	}
}

func NewReceiver(
	provider Provider,
	store SubscriptionWriter,
	prices *PriceCatalog,
	logger *slog.Logger,
	opts ...ReceiverOption,
) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Receiver{
		provider: provider,
		store:    store,
		prices:   prices,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle verifies payload against signature and then dispatches it. It
// returns nil for events that are acknowledged without a write (unknown
// kinds, unattributed or malformed objects). Only verification and
// configuration errors and storage failures are returned.
func (r *Receiver) Handle(
	ctx context.Context,
	payload []byte,
	signature string,
) error {
	if r.provider == nil {
		return ErrNotConfigured
	}

	event, err := r.provider.ConstructEvent(payload, signature)
	if err != nil {
		r.logger.Warn("webhook rejected", "error", err)
		return err
	}

	ctx, span := core.StartSpan(ctx, tracerName, "billing.webhook",
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", event.Type),
	)
	defer span.End()

	logger := r.logger.With("event_id", event.ID, "event_type", event.Type)

	parsed, err := ParseEvent(event.Type, event.Object, r.prices)
	switch {
	case errors.Is(err, ErrUnknownEvent):
		logger.Info("webhook event ignored")
		webhookEvents.WithLabelValues(event.Type, outcomeIgnored).Inc()
		return nil
	case errors.Is(err, ErrUnattributed):
		logger.Warn("webhook event dropped, no user attribution", "error", err)
		webhookEvents.WithLabelValues(event.Type, outcomeUnattributed).Inc()
		return nil
	case err != nil:
		logger.Error("webhook event dropped, malformed object", "error", err)
		webhookEvents.WithLabelValues(event.Type, outcomeMalformed).Inc()
		return nil
	}

	span.SetAttributes(attribute.String("user.id", parsed.User()))

	outcome, err := r.apply(ctx, logger, parsed)
	if err != nil {
		core.SetSpanError(ctx, err)
		webhookEvents.WithLabelValues(event.Type, outcomeFailed).Inc()
		logger.Error("webhook event failed", "user_id", parsed.User(), "error", err)
		return fmt.Errorf("apply %s: %w", event.Type, err)
	}

	webhookEvents.WithLabelValues(event.Type, outcome).Inc()
	return nil
}

func (r *Receiver) apply(
	ctx context.Context,
	logger *slog.Logger,
	parsed ParsedEvent,
) (string, error) {
	switch e := parsed.(type) {
	case CheckoutCompleted:
		sub := subscription.Implicit(e.UserID)
		sub.ActivateFromCheckout(e.Plan, e.CustomerID, e.SubscriptionID, r.now())
		if err := r.store.Upsert(ctx, sub); err != nil {
			return "", err
		}
		logger.Info("checkout completed", "user_id", e.UserID, "plan", e.Plan)

	case SubscriptionChanged:
		sub := subscription.Implicit(e.UserID)
		sub.SyncFromProvider(e.State)
		if err := r.store.Upsert(ctx, sub); err != nil {
			return "", err
		}
		logger.Info("subscription synced",
			"user_id", e.UserID,
			"plan", sub.Plan,
			"status", sub.Status,
		)

	case SubscriptionDeleted:
		sub := subscription.Implicit(e.UserID)
		sub.StripeCustomerID = nonEmpty(e.CustomerID)
		sub.Cancel()
		if err := r.store.Upsert(ctx, sub); err != nil {
			return "", err
		}
		logger.Info("subscription canceled", "user_id", e.UserID)

	case InvoicePaid:
		logger.Info("invoice paid",
			"user_id", e.UserID,
			"invoice_id", e.InvoiceID,
			"subscription_id", e.SubscriptionID,
			"amount", e.AmountPaid,
			"currency", e.Currency,
		)
		return outcomeLogged, nil

	case InvoiceFailed:
		logger.Warn("invoice payment failed",
			"user_id", e.UserID,
			"invoice_id", e.InvoiceID,
			"subscription_id", e.SubscriptionID,
			"amount", e.AmountDue,
			"currency", e.Currency,
			"attempt", e.AttemptCount,
		)
		return outcomeLogged, nil

	default:
		return outcomeIgnored, nil
	}

	return outcomeApplied, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
