package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

// SettingRepository reads and writes the key/value settings register.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// All returns every stored setting ordered by key.
func (r *SettingRepository) All(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT key, value, updated_at FROM settings ORDER BY key ASC`
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// ListByKeys returns settings whose key is in keys.
func (r *SettingRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT key, value, updated_at FROM settings WHERE key IN (%s) ORDER BY key ASC`, placeholders(len(keys)))
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query, stringArgs(keys)...); err != nil {
		return nil, fmt.Errorf("list settings by keys: %w", err)
	}
	return settings, nil
}

// Get fetches a single setting; sql.ErrNoRows is returned unchanged.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const query = `SELECT key, value, updated_at FROM settings WHERE key = $1`
	var s models.Setting
	if err := r.db.GetContext(ctx, &s, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return &s, nil
}

// Update writes value for an existing key and reports how many rows changed.
func (r *SettingRepository) Update(ctx context.Context, key, value string) (int64, error) {
	const query = `UPDATE settings SET value = $2, updated_at = $3 WHERE key = $1`
	res, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update setting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update setting %s rows: %w", key, err)
	}
	return n, nil
}

// Insert creates a new key.
func (r *SettingRepository) Insert(ctx context.Context, key, value string) error {
	const query = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert setting %s: %w", key, err)
	}
	return nil
}
