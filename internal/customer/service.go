// AngelaMos | 2026
// service.go

package customer

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

type CustomValues interface {
	ValuesForWrite(
		ctx context.Context,
		userID string,
		entity customfield.Entity,
		values map[string]any,
	) (customfield.Values, error)
}

type CurrencyLookup interface {
	Currency(ctx context.Context, userID string) (string, error)
}

type Service struct {
	repo       Repository
	custom     CustomValues
	currencies CurrencyLookup
}

func NewService(repo Repository, custom CustomValues, currencies CurrencyLookup) *Service {
	return &Service{repo: repo, custom: custom, currencies: currencies}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Customer, error) {
	custom, err := s.custom.ValuesForWrite(ctx, userID, customfield.EntityCustomer, req.Custom)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency, err = s.currencies.Currency(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	c := &Customer{
		ID:       uuid.New().String(),
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Email:    optional(req.Email),
		Phone:    optional(req.Phone),
		Notes:    optional(req.Notes),
		Currency: currency,
		Custom:   custom,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Customer, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, params ListParams) ([]Customer, int, error) {
	return s.repo.List(ctx, userID, params)
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Custom != nil {
		custom, err := s.custom.ValuesForWrite(ctx, userID, customfield.EntityCustomer, req.Custom)
		if err != nil {
			return nil, err
		}
		c.Custom = custom
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		c.Email = optional(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = optional(*req.Phone)
	}
	if req.Notes != nil {
		c.Notes = optional(*req.Notes)
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// Delete also removes the customer's transactions.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, id, userID)
}

// Lookup returns the customer when it belongs to userID. Transactions use
// it to check ownership and inherit the currency.
func (s *Service) Lookup(ctx context.Context, userID, id string) (*Customer, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) Stream(ctx context.Context, userID string, fn func(*Customer) error) error {
	return s.repo.Stream(ctx, userID, fn)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
