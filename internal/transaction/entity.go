// AngelaMos | 2026
// entity.go

package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

type Type string

const (
	TypeCredit  Type = "credit"
	TypePayment Type = "payment"
)

func (t Type) Valid() bool {
	return t == TypeCredit || t == TypePayment
}

// Transaction is one ledger movement on a customer. A credit increases
// what the customer owes and a payment reduces it. Currency always equals
// the customer's currency.
type Transaction struct {
	ID           string             `db:"id"`
	UserID       string             `db:"user_id"`
	CustomerID   string             `db:"customer_id"`
	CustomerName string             `db:"customer_name"`
	Type         Type               `db:"type"`
	Amount       decimal.Decimal    `db:"amount"`
	Currency     string             `db:"currency"`
	Description  *string            `db:"description"`
	OccurredAt   time.Time          `db:"occurred_at"`
	Custom       customfield.Values `db:"custom"`
	CreatedAt    time.Time          `db:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at"`
}

// Signed is the amount's effect on the customer balance.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypePayment {
		return t.Amount.Neg()
	}
	return t.Amount
}
