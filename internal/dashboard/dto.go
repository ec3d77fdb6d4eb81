// AngelaMos | 2026
// dto.go

package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/ledger-backend/internal/transaction"
)

// CurrencyTotals holds figures for one currency. Amounts in different
// currencies are never summed together.
type CurrencyTotals struct {
	Currency           string          `json:"currency"             db:"currency"`
	Outstanding        decimal.Decimal `json:"outstanding"          db:"outstanding"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month" db:"collected_this_month"`
}

type Counts struct {
	Customers    int `db:"customers"`
	Transactions int `db:"transactions"`
}

type Response struct {
	CustomerCount    int                    `json:"customer_count"`
	TransactionCount int                    `json:"transaction_count"`
	Currencies       []CurrencyTotals       `json:"currencies"`
	Recent           []transaction.Response `json:"recent_transactions"`
}
