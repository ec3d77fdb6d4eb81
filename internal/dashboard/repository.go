// AngelaMos | 2026
// repository.go

package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	Counts(ctx context.Context, userID string) (*Counts, error)
	Totals(ctx context.Context, userID string, monthStart time.Time) ([]CurrencyTotals, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Counts(ctx context.Context, userID string) (*Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM customers WHERE user_id = $1) AS customers,
			(SELECT COUNT(*) FROM transactions WHERE user_id = $1) AS transactions`

	var c Counts
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	return &c, nil
}

// Totals reports, per currency, the sum of positive customer balances and
// the payments received since monthStart. Customers in credit do not
// offset what others owe.
func (r *repository) Totals(
	ctx context.Context,
	userID string,
	monthStart time.Time,
) ([]CurrencyTotals, error) {
	query := `
		WITH balances AS (
			SELECT c.currency,
			       COALESCE(SUM(CASE WHEN t.type = 'credit' THEN t.amount ELSE -t.amount END), 0) AS balance
			FROM customers c
			LEFT JOIN transactions t ON t.customer_id = c.id AND t.user_id = c.user_id
			WHERE c.user_id = $1
			GROUP BY c.id, c.currency
		),
		outstanding AS (
			SELECT currency, SUM(GREATEST(balance, 0)) AS outstanding
			FROM balances
			GROUP BY currency
		),
		collected AS (
			SELECT currency, SUM(amount) AS collected
			FROM transactions
			WHERE user_id = $1 AND type = 'payment' AND occurred_at >= $2
			GROUP BY currency
		)
		SELECT COALESCE(o.currency, c.currency) AS currency,
		       COALESCE(o.outstanding, 0) AS outstanding,
		       COALESCE(c.collected, 0) AS collected_this_month
		FROM outstanding o
		FULL OUTER JOIN collected c ON c.currency = o.currency
		ORDER BY currency`

	var totals []CurrencyTotals
	if err := r.db.SelectContext(ctx, &totals, query, userID, monthStart); err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}

	return totals, nil
}
