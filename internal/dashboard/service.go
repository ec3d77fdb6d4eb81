// AngelaMos | 2026
// service.go

package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/ledger-backend/internal/transaction"
)

const recentLimit = 10

type RecentSource interface {
	Recent(ctx context.Context, userID string, limit int) ([]transaction.Transaction, error)
}

type Service struct {
	repo   Repository
	recent RecentSource
	now    func() time.Time
}

func NewService(repo Repository, recent RecentSource) *Service {
	return &Service{repo: repo, recent: recent, now: time.Now}
}

// Stats runs the aggregate queries concurrently. Any failure fails the
// whole response.
func (s *Service) Stats(ctx context.Context, userID string) (*Response, error) {
	var (
		counts *Counts
		totals []CurrencyTotals
		recent []transaction.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.Counts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx, userID, MonthStart(s.now()))
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.recent.Recent(gctx, userID, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if totals == nil {
		totals = []CurrencyTotals{}
	}

	return &Response{
		CustomerCount:    counts.Customers,
		TransactionCount: counts.Transactions,
		Currencies:       totals,
		Recent:           transaction.ToResponseList(recent),
	}, nil
}

// MonthStart is midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
