package models

import "time"

// UserRole represents the roles known to the application.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleLearner UserRole = "learner"
)

// AuthUser is an identity-provider account stored in auth_users.
type AuthUser struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Active          bool       `db:"active" json:"active"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// EmailVerified reports whether the account confirmed its email address.
func (u AuthUser) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage applies defaults and bounds to page parameters.
func NormalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return page, size
}
