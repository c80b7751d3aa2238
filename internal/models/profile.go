package models

import "time"

// Profile is a learner's public identity, one per auth account.
type Profile struct {
	ID         string    `db:"id" json:"id"`
	AuthUserID string    `db:"auth_user_id" json:"auth_user_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileFilter scopes the admin user list.
type ProfileFilter struct {
	Search   string
	Page     int
	PageSize int
}

// UpdateProfileRequest is the learner's own profile edit.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
