package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

const profileColumns = `id, auth_user_id, user_id, name, email, phone, created_at, updated_at`

// ProfileRepository provides access to learner profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByAuthUserID returns the profile linked to an account.
func (r *ProfileRepository) FindByAuthUserID(ctx context.Context, authUserID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE auth_user_id = $1 LIMIT 1`
	var p models.Profile
	if err := r.db.GetContext(ctx, &p, query, authUserID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by auth user: %w", err)
	}
	return &p, nil
}

// FindByUserID returns the profile with a public id such as QUR-0001.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 LIMIT 1`
	var p models.Profile
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by user id: %w", err)
	}
	return &p, nil
}

// List returns profiles newest first, optionally filtered by name, email or user id.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	base := `FROM profiles WHERE 1=1`
	var args []interface{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		base += ` AND (LOWER(name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(user_id) LIKE $1)`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", profileColumns, base, limit, offset)
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// All returns every profile ordered by user id, for exports.
func (r *ProfileRepository) All(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY user_id ASC`
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list all profiles: %w", err)
	}
	return profiles, nil
}

// UpdateContact changes the learner's name and phone.
func (r *ProfileRepository) UpdateContact(ctx context.Context, authUserID, name string, phone *string) error {
	const query = `UPDATE profiles SET name = $2, phone = $3, updated_at = $4 WHERE auth_user_id = $1`
	res, err := r.db.ExecContext(ctx, query, authUserID, name, phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
