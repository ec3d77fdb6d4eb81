// AngelaMos | 2026
// checkout.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
)

type CustomerStore interface {
	GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error)
	EnsureCustomer(ctx context.Context, userID, customerID string) error
}

type UserDirectory interface {
	Email(ctx context.Context, userID string) (string, error)
}

type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
}

type CheckoutService struct {
	provider Provider
	store    CustomerStore
	users    UserDirectory
	prices   *PriceCatalog
	cfg      CheckoutConfig
	logger   *slog.Logger
}

func NewCheckoutService(
	provider Provider,
	store CustomerStore,
	users UserDirectory,
	prices *PriceCatalog,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		provider: provider,
		store:    store,
		users:    users,
		prices:   prices,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateSession returns the hosted checkout URL for plan and interval.
// The provider customer is created on first use and its id persisted
// before the session is opened.
func (s *CheckoutService) CreateSession(
	ctx context.Context,
	userID string,
	req CheckoutRequest,
) (url string, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "billing.checkout",
		attribute.String("user.id", userID),
		attribute.String("checkout.plan", req.Plan),
	)
	defer func() {
		if err != nil {
			core.SetSpanError(ctx, err)
		}
		span.End()
	}()

	plan, ok := subscription.ParsePlan(req.Plan)
	if !ok || !plan.Purchasable() {
		return "", fmt.Errorf("checkout: %w: %q", ErrInvalidPlan, req.Plan)
	}

	interval, ok := ParseInterval(req.Interval)
	if !ok {
		return "", fmt.Errorf("checkout: %w: %q", ErrInvalidInterval, req.Interval)
	}

	if s.provider == nil {
		return "", fmt.Errorf("checkout: %w", ErrNotConfigured)
	}

	priceID, ok := s.prices.PriceID(plan, interval)
	if !ok {
		return "", fmt.Errorf("checkout: %w for %s/%s", ErrPriceNotConfigured, plan, interval)
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionInput{
		UserID:     userID,
		CustomerID: customerID,
		PriceID:    priceID,
		Plan:       string(plan),
		Interval:   interval,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}

	s.logger.Info("checkout session created",
		"user_id", userID,
		"plan", plan,
		"interval", interval,
		"session_id", sess.ID,
	)

	return sess.URL, nil
}

func (s *CheckoutService) ensureCustomer(
	ctx context.Context,
	userID string,
) (string, error) {
	sub, err := s.store.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return "", err
	case sub.CustomerID() != "":
		return sub.CustomerID(), nil
	}

	email, err := s.users.Email(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup email: %w", err)
	}

	created, err := s.provider.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}

	core.AddSpanEvent(ctx, "billing.customer_created",
		attribute.String("stripe.customer_id", created),
	)

	if err := s.store.EnsureCustomer(ctx, userID, created); err != nil {
		return "", err
	}

	// A concurrent checkout may have stored a different id first; the
	// stored one wins.
	sub, err = s.store.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if id := sub.CustomerID(); id != "" {
		return id, nil
	}

	return created, nil
}
