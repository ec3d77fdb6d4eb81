// AngelaMos | 2026
// service.go

package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/customer"
	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

const maxAmountPlaces = 4

var maxAmount = decimal.New(1, 12)

type CustomerLookup interface {
	Lookup(ctx context.Context, userID, id string) (*customer.Customer, error)
}

type CustomValues interface {
	ValuesForWrite(
		ctx context.Context,
		userID string,
		entity customfield.Entity,
		values map[string]any,
	) (customfield.Values, error)
}

type Service struct {
	repo      Repository
	customers CustomerLookup
	custom    CustomValues
	now       func() time.Time
}

func NewService(repo Repository, customers CustomerLookup, custom CustomValues) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		custom:    custom,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Transaction, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	owner, err := s.customers.Lookup(ctx, userID, req.CustomerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("customer")
		}
		return nil, err
	}

	if req.Currency != "" && !strings.EqualFold(req.Currency, owner.Currency) {
		return nil, core.BadRequestError(
			"currency must match the customer currency " + owner.Currency,
		)
	}

	custom, err := s.custom.ValuesForWrite(ctx, userID, customfield.EntityTransaction, req.Custom)
	if err != nil {
		return nil, err
	}

	occurredAt := s.now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	t := &Transaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		CustomerID:   owner.ID,
		CustomerName: owner.Name,
		Type:         Type(req.Type),
		Amount:       req.Amount,
		Currency:     owner.Currency,
		Description:  optional(req.Description),
		OccurredAt:   occurredAt,
		Custom:       custom,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("customer")
		}
		return nil, err
	}

	return t, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, params ListParams) ([]Transaction, int, error) {
	return s.repo.List(ctx, userID, params)
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return nil, err
		}
		t.Amount = *req.Amount
	}
	if req.Custom != nil {
		custom, err := s.custom.ValuesForWrite(ctx, userID, customfield.EntityTransaction, req.Custom)
		if err != nil {
			return nil, err
		}
		t.Custom = custom
	}
	if req.Type != nil {
		t.Type = Type(*req.Type)
	}
	if req.Description != nil {
		t.Description = optional(*req.Description)
	}
	if req.OccurredAt != nil {
		t.OccurredAt = req.OccurredAt.UTC()
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, id, userID)
}

// Recent returns the user's latest transactions across all customers.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	txs, _, err := s.repo.List(ctx, userID, ListParams{Page: 1, PageSize: limit})
	return txs, err
}

func (s *Service) Stream(
	ctx context.Context,
	userID string,
	filter Filter,
	fn func(*Transaction) error,
) error {
	return s.repo.Stream(ctx, userID, filter, fn)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.BadRequestError("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(maxAmountPlaces)) {
		return core.BadRequestError("amount has too many decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return core.BadRequestError("amount is too large")
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
