// AngelaMos | 2026
// dto.go

package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

// Amounts accept either a JSON number or a string ("12.50").
type CreateRequest struct {
	CustomerID  string          `json:"customer_id" validate:"required,uuid"`
	Type        string          `json:"type"        validate:"required,oneof=credit payment"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"    validate:"omitempty,iso4217"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	OccurredAt  *time.Time      `json:"occurred_at,omitempty"`
	Custom      map[string]any  `json:"custom"`
}

type UpdateRequest struct {
	Type        *string          `json:"type,omitempty"        validate:"omitempty,oneof=credit payment"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	OccurredAt  *time.Time       `json:"occurred_at,omitempty"`
	Custom      map[string]any   `json:"custom"`
}

// Filter narrows list and export reads. Zero values match everything.
type Filter struct {
	CustomerID string
	Type       Type
	From       *time.Time
	To         *time.Time
}

type ListParams struct {
	Filter
	Page     int
	PageSize int
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
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	CustomerName string             `json:"customer_name,omitempty"`
	Type         Type               `json:"type"`
	Amount       decimal.Decimal    `json:"amount"`
	Currency     string             `json:"currency"`
	Description  *string            `json:"description"`
	OccurredAt   time.Time          `json:"occurred_at"`
	Custom       customfield.Values `json:"custom"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func ToResponse(t *Transaction) Response {
	custom := t.Custom
	if custom == nil {
		custom = customfield.Values{}
	}
	return Response{
		ID:           t.ID,
		CustomerID:   t.CustomerID,
		CustomerName: t.CustomerName,
		Type:         t.Type,
		Amount:       t.Amount,
		Currency:     t.Currency,
		Description:  t.Description,
		OccurredAt:   t.OccurredAt,
		Custom:       custom,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func ToResponseList(txs []Transaction) []Response {
	out := make([]Response, 0, len(txs))
	for i := range txs {
		out = append(out, ToResponse(&txs[i]))
	}
	return out
}
