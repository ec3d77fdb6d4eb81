// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// OnboardingRequest completes the business profile. Submitting it again
// updates the profile and keeps the original onboarded_at.
type OnboardingRequest struct {
	BusinessName string `json:"business_name" validate:"required,min=1,max=200"`
	Phone        string `json:"phone"         validate:"omitempty,e164"`
	Currency     string `json:"currency"      validate:"required,iso4217"`
	Locale       string `json:"locale"        validate:"omitempty,bcp47_language_tag"`
}

type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	BusinessName *string    `json:"business_name"`
	Phone        *string    `json:"phone"`
	Currency     string     `json:"currency"`
	Locale       string     `json:"locale"`
	Onboarded    bool       `json:"onboarded"`
	OnboardedAt  *time.Time `json:"onboarded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
	// Onboarded filters on profile completion when set.
	Onboarded *bool `json:"onboarded,omitempty"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		BusinessName: u.BusinessName,
		Phone:        u.Phone,
		Currency:     u.Currency,
		Locale:       u.Locale,
		Onboarded:    u.IsOnboarded(),
		OnboardedAt:  u.OnboardedAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
