// AngelaMos | 2026
// stripe.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/carterperez-dev/ledger-backend/internal/config"
)

const (
	metaUserID   = "user_id"
	metaPlan     = "plan"
	metaInterval = "interval"
)

type StripeProvider struct {
	customers     *customer.Client
	sessions      *session.Client
	webhookSecret string
	tolerance     time.Duration
	logger        *slog.Logger
}

// NewStripeProvider returns ErrNotConfigured when no secret key is set.
func NewStripeProvider(
	cfg config.BillingConfig,
	logger *slog.Logger,
) (*StripeProvider, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := stripe.GetBackend(stripe.APIBackend)

	return &StripeProvider{
		customers:     &customer.Client{B: backend, Key: cfg.SecretKey},
		sessions:      &session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     webhook.DefaultTolerance,
		logger:        logger,
	}, nil
}

func (p *StripeProvider) CreateCustomer(
	ctx context.Context,
	userID, email string,
) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(metaUserID, userID)
	params.SetIdempotencyKey("customer-" + userID)

	c, err := p.customers.New(params)
	if err != nil {
		p.logProviderError("create customer", userID, err)
		return "", fmt.Errorf("create stripe customer: %w", err)
	}

	return c.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(
	ctx context.Context,
	input CheckoutSessionInput,
) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(input.CustomerID),
		ClientReferenceID: stripe.String(input.UserID),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(input.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{},
	}
	params.Context = ctx

	meta := map[string]string{
		metaUserID:   input.UserID,
		metaPlan:     input.Plan,
		metaInterval: string(input.Interval),
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
		params.SubscriptionData.AddMetadata(k, v)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		p.logProviderError("create checkout session", input.UserID, err)
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}

	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) ConstructEvent(
	payload []byte,
	signature string,
) (*Event, error) {
	if p.webhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}
	if signature == "" {
		return nil, ErrSignatureMissing
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		p.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                p.tolerance,
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	out := &Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data != nil {
		out.Object = event.Data.Raw
	}

	return out, nil
}

func (p *StripeProvider) logProviderError(op, userID string, err error) {
	attrs := []any{"op", op, "user_id", userID, "error", err}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		attrs = append(attrs,
			"stripe_request_id", stripeErr.RequestID,
			"stripe_code", string(stripeErr.Code),
			"http_status", stripeErr.HTTPStatusCode,
		)
	}

	p.logger.Error("stripe request failed", attrs...)
}
