// AngelaMos | 2026
// entity.go

package customer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/customfield"
)

// Customer is a merchant's ledger account. Credits and Payments are the
// sums of its transactions and are only populated on reads.
type Customer struct {
	ID        string             `db:"id"`
	UserID    string             `db:"user_id"`
	Name      string             `db:"name"`
	Email     *string            `db:"email"`
	Phone     *string            `db:"phone"`
	Notes     *string            `db:"notes"`
	Currency  string             `db:"currency"`
	Custom    customfield.Values `db:"custom"`
	Credits   decimal.Decimal    `db:"credits"`
	Payments  decimal.Decimal    `db:"payments"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

// Balance is what the customer owes: credits extended minus payments
// received.
func (c *Customer) Balance() decimal.Decimal {
	return c.Credits.Sub(c.Payments)
}
