// AngelaMos | 2026
// repository.go

package customfield

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, def *Definition) error
	GetByID(ctx context.Context, id, userID string) (*Definition, error)
	List(ctx context.Context, userID string, entity Entity) ([]Definition, error)
	Update(ctx context.Context, def *Definition) error
	Delete(ctx context.Context, id, userID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const definitionColumns = `
	id, user_id, entity, key, label, type, options, created_at, updated_at`

func (r *repository) Create(ctx context.Context, def *Definition) error {
	query := `
		INSERT INTO custom_fields (id, user_id, entity, key, label, type, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		def.ID,
		def.UserID,
		def.Entity,
		def.Key,
		def.Label,
		def.Type,
		def.Options,
	).Scan(&def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create custom field: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create custom field: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id, userID string) (*Definition, error) {
	query := `SELECT ` + definitionColumns + `
		FROM custom_fields
		WHERE id = $1 AND user_id = $2`

	var def Definition
	err := r.db.GetContext(ctx, &def, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get custom field: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get custom field: %w", err)
	}

	return &def, nil
}

// List returns every definition for the user, or only those for entity
// when it is non-empty.
func (r *repository) List(ctx context.Context, userID string, entity Entity) ([]Definition, error) {
	query := `SELECT ` + definitionColumns + `
		FROM custom_fields
		WHERE user_id = $1 AND ($2 = '' OR entity = $2)
		ORDER BY entity, key`

	var defs []Definition
	if err := r.db.SelectContext(ctx, &defs, query, userID, string(entity)); err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}

	return defs, nil
}

func (r *repository) Update(ctx context.Context, def *Definition) error {
	query := `
		UPDATE custom_fields
		SET label = $3, options = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &def.UpdatedAt, query,
		def.ID,
		def.UserID,
		def.Label,
		def.Options,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update custom field: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update custom field: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM custom_fields WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete custom field: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete custom field: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete custom field: %w", core.ErrNotFound)
	}

	return nil
}
