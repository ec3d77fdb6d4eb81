// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/ledger-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	SaveProfile(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Soft-deleted accounts are invisible to every read and write below.
const (
	selectUser = `
		SELECT id, email, password_hash, name, role, token_version,
		       business_name, phone, currency, locale, onboarded_at,
		       created_at, updated_at, deleted_at
		FROM users`
	liveUser = `deleted_at IS NULL`
)

func (r *repository) Create(ctx context.Context, user *User) error {
	err := r.db.GetContext(ctx, user, `
		INSERT INTO users (id, email, password_hash, name, role, currency, locale)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at, token_version`,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.Role, user.Currency, user.Locale,
	)
	switch {
	case core.IsDuplicateKeyError(err):
		return fmt.Errorf("create user %s: %w", user.Email, core.ErrDuplicateKey)
	case err != nil:
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", "email", email)
}

// getOne loads a live user by a unique column. column is always a
// literal from this file.
func (r *repository) getOne(ctx context.Context, op, column, value string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		selectUser+` WHERE `+column+` = $1 AND `+liveUser, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	err := r.db.GetContext(ctx, &user.UpdatedAt, `
		UPDATE users
		SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1 AND `+liveUser+`
		RETURNING updated_at`,
		user.ID, user.Name, user.Role,
	)
	return notFoundOnNoRows("update user", err)
}

// SaveProfile writes the business profile. onboarded_at is only set the
// first time.
func (r *repository) SaveProfile(ctx context.Context, user *User) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE users
		SET business_name = $2,
		    phone = $3,
		    currency = $4,
		    locale = $5,
		    onboarded_at = COALESCE(onboarded_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND `+liveUser+`
		RETURNING onboarded_at, updated_at`,
		user.ID, user.BusinessName, user.Phone, user.Currency, user.Locale,
	).Scan(&user.OnboardedAt, &user.UpdatedAt)
	return notFoundOnNoRows("save profile", err)
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND `+liveUser, id, passwordHash)
}

// IncrementTokenVersion invalidates every access token issued so far.
func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "increment token version", `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND `+liveUser, id)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete user", `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND `+liveUser, id)
}

// execOne runs a single-row write and maps zero affected rows to
// ErrNotFound.
func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func notFoundOnNoRows(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	where := []string{liveUser}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Search != "" {
		p := arg("%" + core.EscapeLike(params.Search) + "%")
		where = append(where, "(email ILIKE "+p+" OR name ILIKE "+p+
			" OR business_name ILIKE "+p+")")
	}
	if params.Role != "" {
		where = append(where, "role = "+arg(params.Role))
	}
	if params.Onboarded != nil {
		if *params.Onboarded {
			where = append(where, "onboarded_at IS NOT NULL")
		} else {
			where = append(where, "onboarded_at IS NULL")
		}
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM users WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := selectUser + ` WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(params.PageSize) +
		` OFFSET ` + arg(params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	// password hashes never leave the repository through a listing
	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, total, nil
}

func (r *repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND `+liveUser+`)`, email)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}
