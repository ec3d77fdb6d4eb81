// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

// Repository persists hashed refresh tokens. Rows are never reused: a
// rotation marks the old row used and inserts a new one in the same family.
type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeForUser(ctx context.Context, id, userID string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ListActiveForUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectRefreshToken = `
	SELECT id, user_id, token_hash, family_id, expires_at, created_at,
	       is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address
	FROM refresh_tokens`

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	err := r.db.GetContext(ctx, &token.CreatedAt, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		token.ID, token.UserID, token.TokenHash, token.FamilyID,
		token.ExpiresAt, token.UserAgent, token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var token RefreshToken
	err := r.db.GetContext(ctx, &token, selectRefreshToken+` WHERE token_hash = $1`, tokenHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// MarkAsUsed only succeeds once per token, so two concurrent refreshes with
// the same token cannot both rotate.
func (r *repository) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	n, err := r.exec(ctx, "mark refresh token used", `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`, id, replacedByID)
	if err == nil && n == 0 {
		err = fmt.Errorf("mark refresh token used: %w", core.ErrNotFound)
	}
	return err
}

// RevokeForUser is scoped to the owner so one user cannot end another's
// session by guessing its id.
func (r *repository) RevokeForUser(ctx context.Context, id, userID string) error {
	n, err := r.revoke(ctx, "revoke refresh token",
		`id = $1 AND user_id = $2`, id, userID)
	if err == nil && n == 0 {
		err = fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}
	return err
}

func (r *repository) RevokeByFamilyID(ctx context.Context, familyID string) error {
	_, err := r.revoke(ctx, "revoke token family", `family_id = $1`, familyID)
	return err
}

func (r *repository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.revoke(ctx, "revoke user tokens", `user_id = $1`, userID)
	return err
}

// revoke stamps revoked_at on every live row matching where. where is
// always a literal from this file.
func (r *repository) revoke(ctx context.Context, op, where string, args ...any) (int64, error) {
	return r.exec(ctx, op, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE `+where+` AND revoked_at IS NULL`, args...)
}

func (r *repository) ListActiveForUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	var tokens []RefreshToken
	err := r.db.SelectContext(ctx, &tokens, selectRefreshToken+`
		WHERE user_id = $1
		  AND revoked_at IS NULL
		  AND is_used = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return tokens, nil
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "delete expired tokens",
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
}

func (r *repository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
