// AngelaMos | 2026
// dto.go

package customer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

type CreateRequest struct {
	Name     string         `json:"name"     validate:"required,min=1,max=200"`
	Email    string         `json:"email"    validate:"omitempty,email,max=255"`
	Phone    string         `json:"phone"    validate:"omitempty,max=32"`
	Notes    string         `json:"notes"    validate:"omitempty,max=2000"`
	Currency string         `json:"currency" validate:"omitempty,iso4217"`
	Custom   map[string]any `json:"custom"`
}

// UpdateRequest leaves nil fields unchanged. Custom replaces the whole set
// of values when present.
type UpdateRequest struct {
	Name   *string        `json:"name,omitempty"  validate:"omitempty,min=1,max=200"`
	Email  *string        `json:"email,omitempty" validate:"omitempty,max=255"`
	Phone  *string        `json:"phone,omitempty" validate:"omitempty,max=32"`
	Notes  *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Custom map[string]any `json:"custom"`
}

type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Response struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     *string            `json:"email"`
	Phone     *string            `json:"phone"`
	Notes     *string            `json:"notes"`
	Currency  string             `json:"currency"`
	Custom    customfield.Values `json:"custom"`
	Credits   decimal.Decimal    `json:"credits"`
	Payments  decimal.Decimal    `json:"payments"`
	Balance   decimal.Decimal    `json:"balance"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func ToResponse(c *Customer) Response {
	custom := c.Custom
	if custom == nil {
		custom = customfield.Values{}
	}
	return Response{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		Currency:  c.Currency,
		Custom:    custom,
		Credits:   c.Credits,
		Payments:  c.Payments,
		Balance:   c.Balance(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToResponseList(customers []Customer) []Response {
	out := make([]Response, 0, len(customers))
	for i := range customers {
		out = append(out, ToResponse(&customers[i]))
	}
	return out
}
