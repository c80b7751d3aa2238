package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AccessRepository calls the identifier verification procedure.
type AccessRepository struct {
	db *sqlx.DB
}

// NewAccessRepository constructs the repository.
func NewAccessRepository(db *sqlx.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

// VerifyUserID returns the result of verify_user_id; a NULL result counts as false.
func (r *AccessRepository) VerifyUserID(ctx context.Context, identifier string) (bool, error) {
	var ok sql.NullBool
	if err := r.db.GetContext(ctx, &ok, `SELECT verify_user_id($1)`, identifier); err != nil {
		return false, fmt.Errorf("verify user id: %w", err)
	}
	return ok.Valid && ok.Bool, nil
}
