// AngelaMos | 2026
// service.go

package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/carterperez-dev/ledger-backend/internal/customer"
	"github.com/carterperez-dev/ledger-backend/internal/customfield"
	"github.com/carterperez-dev/ledger-backend/internal/transaction"
)

type CustomerSource interface {
	Stream(ctx context.Context, userID string, fn func(*customer.Customer) error) error
}

type TransactionSource interface {
	Stream(
		ctx context.Context,
		userID string,
		filter transaction.Filter,
		fn func(*transaction.Transaction) error,
	) error
}

type FieldSource interface {
	List(ctx context.Context, userID string, entity customfield.Entity) ([]customfield.Definition, error)
}

// Job is a prepared export. Run writes the body; callers set response
// headers from Format and Filename first.
type Job struct {
	Format   Format
	Filename string
	run      func(w io.Writer) error
}

func (j *Job) Run(w io.Writer) error {
	return j.run(w)
}

type Service struct {
	customers    CustomerSource
	transactions TransactionSource
	fields       FieldSource
	now          func() time.Time
}

func NewService(customers CustomerSource, transactions TransactionSource, fields FieldSource) *Service {
	return &Service{
		customers:    customers,
		transactions: transactions,
		fields:       fields,
		now:          time.Now,
	}
}

var customerHeader = []string{
	"id", "name", "email", "phone", "notes", "currency",
	"credits", "payments", "balance", "created_at",
}

var transactionHeader = []string{
	"id", "occurred_at", "customer_id", "customer_name", "type",
	"amount", "currency", "description", "created_at",
}

// Customers prepares an export of every customer with its balance.
func (s *Service) Customers(ctx context.Context, userID string, format Format) (*Job, error) {
	keys, err := s.customKeys(ctx, userID, customfield.EntityCustomer)
	if err != nil {
		return nil, err
	}

	return &Job{
		Format:   format,
		Filename: s.filename("customers", format),
		run: func(w io.Writer) error {
			enc, err := newEncoder(format, w, withCustom(customerHeader, keys))
			if err != nil {
				return err
			}

			err = s.customers.Stream(ctx, userID, func(c *customer.Customer) error {
				return enc.Encode(Row{
					Value: customer.ToResponse(c),
					Fields: append([]string{
						c.ID,
						sanitizeCell(c.Name),
						deref(c.Email),
						deref(c.Phone),
						deref(c.Notes),
						c.Currency,
						c.Credits.String(),
						c.Payments.String(),
						c.Balance().String(),
						c.CreatedAt.UTC().Format(time.RFC3339),
					}, customCells(c.Custom, keys)...),
				})
			})
			if err != nil {
				return fmt.Errorf("export customers: %w", err)
			}
			return enc.Close()
		},
	}, nil
}

// Transactions prepares an export of the transactions matching filter.
func (s *Service) Transactions(
	ctx context.Context,
	userID string,
	filter transaction.Filter,
	format Format,
) (*Job, error) {
	keys, err := s.customKeys(ctx, userID, customfield.EntityTransaction)
	if err != nil {
		return nil, err
	}

	return &Job{
		Format:   format,
		Filename: s.filename("transactions", format),
		run: func(w io.Writer) error {
			enc, err := newEncoder(format, w, withCustom(transactionHeader, keys))
			if err != nil {
				return err
			}

			err = s.transactions.Stream(ctx, userID, filter, func(t *transaction.Transaction) error {
				return enc.Encode(Row{
					Value: transaction.ToResponse(t),
					Fields: append([]string{
						t.ID,
						t.OccurredAt.UTC().Format(time.RFC3339),
						t.CustomerID,
						sanitizeCell(t.CustomerName),
						string(t.Type),
						t.Amount.String(),
						t.Currency,
						deref(t.Description),
						t.CreatedAt.UTC().Format(time.RFC3339),
					}, customCells(t.Custom, keys)...),
				})
			})
			if err != nil {
				return fmt.Errorf("export transactions: %w", err)
			}
			return enc.Close()
		},
	}, nil
}

func (s *Service) customKeys(ctx context.Context, userID string, entity customfield.Entity) ([]string, error) {
	defs, err := s.fields.List(ctx, userID, entity)
	if err != nil {
		return nil, fmt.Errorf("export fields: %w", err)
	}

	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

func (s *Service) filename(kind string, format Format) string {
	return fmt.Sprintf("%s-%s.%s", kind, s.now().UTC().Format("2006-01-02"), format)
}

func withCustom(header, keys []string) []string {
	out := make([]string, 0, len(header)+len(keys))
	out = append(out, header...)
	for _, k := range keys {
		out = append(out, "custom."+k)
	}
	return out
}

func customCells(values customfield.Values, keys []string) []string {
	cells := make([]string, len(keys))
	for i, k := range keys {
		if v, ok := values[k]; ok && v != nil {
			cells[i] = sanitizeCell(fmt.Sprint(v))
		}
	}
	return cells
}
