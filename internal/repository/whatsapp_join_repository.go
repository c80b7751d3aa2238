package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

const joinColumns = `id, name, phone, join_type, status, created_at`

// WhatsAppJoinRepository stores group join requests.
type WhatsAppJoinRepository struct {
	db *sqlx.DB
}

// NewWhatsAppJoinRepository constructs the repository.
func NewWhatsAppJoinRepository(db *sqlx.DB) *WhatsAppJoinRepository {
	return &WhatsAppJoinRepository{db: db}
}

// Create inserts a pending join request.
func (r *WhatsAppJoinRepository) Create(ctx context.Context, j *models.WhatsAppJoin) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Status = models.StatusPending
	j.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO whatsapp_joins (id, name, phone, join_type, status, created_at) VALUES (:id, :name, :phone, :join_type, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, j); err != nil {
		return fmt.Errorf("create whatsapp join: %w", err)
	}
	return nil
}

// List returns join requests newest first.
func (r *WhatsAppJoinRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, int, error) {
	base, args := reviewWhere("whatsapp_joins", filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", joinColumns, base, limit, offset)
	var joins []models.WhatsAppJoin
	if err := r.db.SelectContext(ctx, &joins, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list whatsapp joins: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count whatsapp joins: %w", err)
	}
	return joins, total, nil
}

// Review moves a pending request to status, reporting false when it was no longer pending.
func (r *WhatsAppJoinRepository) Review(ctx context.Context, id string, status models.ReviewStatus) (bool, error) {
	const query = `UPDATE whatsapp_joins SET status = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return false, fmt.Errorf("review whatsapp join: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review whatsapp join rows: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether a request with id exists.
func (r *WhatsAppJoinRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM whatsapp_joins WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("whatsapp join exists: %w", err)
	}
	return ok, nil
}
