// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	LedgerTotals(ctx context.Context) (*LedgerTotals, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) LedgerTotals(ctx context.Context) (*LedgerTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM users WHERE onboarded_at IS NOT NULL) AS onboarded,
			(SELECT COUNT(*) FROM customers) AS customers,
			(SELECT COUNT(*) FROM transactions) AS transactions`

	var totals LedgerTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}

	return &totals, nil
}
