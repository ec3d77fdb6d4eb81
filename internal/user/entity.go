// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	TokenVersion int        `db:"token_version"`
	BusinessName *string    `db:"business_name"`
	Phone        *string    `db:"phone"`
	Currency     string     `db:"currency"`
	Locale       string     `db:"locale"`
	OnboardedAt  *time.Time `db:"onboarded_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsOnboarded() bool {
	return u.OnboardedAt != nil
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	DefaultCurrency = "USD"
	DefaultLocale   = "en-US"
)
