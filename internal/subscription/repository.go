// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	EnsureCustomer(ctx context.Context, userID, customerID string) error
	Upsert(ctx context.Context, sub *Subscription) error
	CountByPlanAndStatus(ctx context.Context) ([]PlanStatusCount, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := `
		SELECT user_id, plan, status, stripe_customer_id, stripe_subscription_id,
		       current_period_start, current_period_end, cancel_at_period_end,
		       created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// EnsureCustomer lazily creates the user's row on the free plan and records
// the provider customer id. An id that is already stored is kept.
func (r *repository) EnsureCustomer(
	ctx context.Context,
	userID, customerID string,
) error {
	query := `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET stripe_customer_id = COALESCE(subscriptions.stripe_customer_id, EXCLUDED.stripe_customer_id),
		    updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		userID,
		PlanFree,
		StatusActive,
		customerID,
	)
	if err != nil {
		return fmt.Errorf("ensure subscription customer: %w", err)
	}

	return nil
}

// Upsert writes the full state of sub keyed by user_id. The customer id is
// only overwritten when sub carries one.
func (r *repository) Upsert(ctx context.Context, sub *Subscription) error {
	sub.Normalize()

	query := `
		INSERT INTO subscriptions (
			user_id, plan, status, stripe_customer_id, stripe_subscription_id,
			current_period_start, current_period_end, cancel_at_period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
		    status = EXCLUDED.status,
		    stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
		    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		sub.UserID,
		sub.Plan,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	return nil
}

func (r *repository) CountByPlanAndStatus(
	ctx context.Context,
) ([]PlanStatusCount, error) {
	query := `
		SELECT plan, status, COUNT(*) AS count
		FROM subscriptions
		GROUP BY plan, status
		ORDER BY plan, status`

	var counts []PlanStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	return counts, nil
}
