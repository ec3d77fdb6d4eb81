// AngelaMos | 2026
// repository.go

package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id, userID string) (*Customer, error)
	List(ctx context.Context, userID string, params ListParams) ([]Customer, int, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id, userID string) error
	Stream(ctx context.Context, userID string, fn func(*Customer) error) error
}

// Store is satisfied by *sqlx.DB.
type Store interface {
	core.DBTX
	core.TxBeginner
}

type repository struct {
	db Store
}

func NewRepository(db Store) Repository {
	return &repository{db: db}
}

const selectWithBalance = `
	SELECT c.id, c.user_id, c.name, c.email, c.phone, c.notes, c.currency,
	       c.custom, c.created_at, c.updated_at,
	       COALESCE(b.credits, 0) AS credits,
	       COALESCE(b.payments, 0) AS payments
	FROM customers c
	LEFT JOIN LATERAL (
		SELECT SUM(t.amount) FILTER (WHERE t.type = 'credit') AS credits,
		       SUM(t.amount) FILTER (WHERE t.type = 'payment') AS payments
		FROM transactions t
		WHERE t.customer_id = c.id AND t.user_id = c.user_id
	) b ON true`

func (r *repository) Create(ctx context.Context, c *Customer) error {
	query := `
		INSERT INTO customers (id, user_id, name, email, phone, notes, currency, custom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		c.Email,
		c.Phone,
		c.Notes,
		c.Currency,
		c.Custom,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id, userID string) (*Customer, error) {
	query := selectWithBalance + `
		WHERE c.id = $1 AND c.user_id = $2`

	var c Customer
	err := r.db.GetContext(ctx, &c, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get customer: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return &c, nil
}

func (r *repository) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Customer, int, error) {
	params.Normalize()

	conditions := []string{"c.user_id = $1"}
	args := []any{userID}
	argIdx := 2

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(c.name ILIKE $%d OR c.email ILIKE $%d OR c.phone ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM customers c WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY c.name ASC, c.created_at DESC
		LIMIT $%d OFFSET $%d`,
		selectWithBalance, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var customers []Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	return customers, total, nil
}

func (r *repository) Update(ctx context.Context, c *Customer) error {
	query := `
		UPDATE customers
		SET name = $3, email = $4, phone = $5, notes = $6, custom = $7,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID,
		c.UserID,
		c.Name,
		c.Email,
		c.Phone,
		c.Notes,
		c.Custom,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update customer: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	return nil
}

// Delete removes the customer and its transactions together.
func (r *repository) Delete(ctx context.Context, id, userID string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE customer_id = $1 AND user_id = $2`,
			id, userID,
		); err != nil {
			return fmt.Errorf("delete customer transactions: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM customers WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("delete customer: %w", core.ErrNotFound)
		}

		return nil
	})
}

// Stream calls fn for every customer of userID without loading them all.
func (r *repository) Stream(
	ctx context.Context,
	userID string,
	fn func(*Customer) error,
) error {
	query := selectWithBalance + `
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("stream customers: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	for rows.Next() {
		var c Customer
		if err := rows.StructScan(&c); err != nil {
			return fmt.Errorf("scan customer: %w", err)
		}
		if err := fn(&c); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream customers: %w", err)
	}

	return nil
}
