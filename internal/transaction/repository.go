// AngelaMos | 2026
// repository.go

package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id, userID string) (*Transaction, error)
	List(ctx context.Context, userID string, params ListParams) ([]Transaction, int, error)
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id, userID string) error
	Stream(ctx context.Context, userID string, filter Filter, fn func(*Transaction) error) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectWithCustomer = `
	SELECT t.id, t.user_id, t.customer_id, c.name AS customer_name, t.type,
	       t.amount, t.currency, t.description, t.occurred_at, t.custom,
	       t.created_at, t.updated_at
	FROM transactions t
	JOIN customers c ON c.id = t.customer_id AND c.user_id = t.user_id`

func (r *repository) Create(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions
			(id, user_id, customer_id, type, amount, currency, description, occurred_at, custom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID,
		t.UserID,
		t.CustomerID,
		t.Type,
		t.Amount,
		t.Currency,
		t.Description,
		t.OccurredAt,
		t.Custom,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create transaction: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id, userID string) (*Transaction, error) {
	query := selectWithCustomer + `
		WHERE t.id = $1 AND t.user_id = $2`

	var t Transaction
	err := r.db.GetContext(ctx, &t, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get transaction: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return &t, nil
}

func whereFilter(userID string, f Filter) (string, []any) {
	conditions := []string{"t.user_id = $1"}
	args := []any{userID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.CustomerID != "" {
		add("t.customer_id = $%d", f.CustomerID)
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.From != nil {
		add("t.occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("t.occurred_at < $%d", *f.To)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *repository) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Transaction, int, error) {
	params.Normalize()
	whereClause, args := whereFilter(userID, params.Filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM transactions t WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY t.occurred_at DESC, t.created_at DESC
		LIMIT $%d OFFSET $%d`,
		selectWithCustomer, whereClause, n+1, n+2)
	args = append(args, params.PageSize, params.Offset())

	var txs []Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	return txs, total, nil
}

func (r *repository) Update(ctx context.Context, t *Transaction) error {
	query := `
		UPDATE transactions
		SET type = $3, amount = $4, description = $5, occurred_at = $6,
		    custom = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID,
		t.UserID,
		t.Type,
		t.Amount,
		t.Description,
		t.OccurredAt,
		t.Custom,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update transaction: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete transaction: %w", core.ErrNotFound)
	}

	return nil
}

// Stream calls fn for every matching transaction, oldest first.
func (r *repository) Stream(
	ctx context.Context,
	userID string,
	filter Filter,
	fn func(*Transaction) error,
) error {
	whereClause, args := whereFilter(userID, filter)
	query := selectWithCustomer + `
		WHERE ` + whereClause + `
		ORDER BY t.occurred_at ASC, t.created_at ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("stream transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	for rows.Next() {
		var t Transaction
		if err := rows.StructScan(&t); err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		if err := fn(&t); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream transactions: %w", err)
	}

	return nil
}
