package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

const donationColumns = `id, donor_name, donor_phone, payment_method, transaction_id, amount, status, admin_note, verified_at, created_at`

// DonationRepository stores hadiya confirmations.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs the repository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a pending donation.
func (r *DonationRepository) Create(ctx context.Context, d *models.Donation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Status = models.StatusPending
	d.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO donations (id, donor_name, donor_phone, payment_method, transaction_id, amount, status, created_at)
VALUES (:id, :donor_name, :donor_phone, :payment_method, :transaction_id, :amount, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// List returns donations newest first.
func (r *DonationRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, int, error) {
	base, args := reviewWhere("donations", filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", donationColumns, base, limit, offset)
	var donations []models.Donation
	if err := r.db.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list donations: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count donations: %w", err)
	}
	return donations, total, nil
}

// FindByID returns one donation.
func (r *DonationRepository) FindByID(ctx context.Context, id string) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1 LIMIT 1`
	var d models.Donation
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return &d, nil
}

// Review moves a pending donation to status. It reports false when the row was no longer pending.
func (r *DonationRepository) Review(ctx context.Context, id string, status models.ReviewStatus, note *string, at time.Time) (bool, error) {
	var verifiedAt *time.Time
	if status == models.StatusVerified {
		verifiedAt = &at
	}
	const query = `UPDATE donations SET status = $2, admin_note = COALESCE($3, admin_note), verified_at = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, string(status), note, verifiedAt)
	if err != nil {
		return false, fmt.Errorf("review donation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review donation rows: %w", err)
	}
	return n > 0, nil
}

func reviewWhere(table string, filter models.ReviewFilter) (string, []interface{}) {
	base := "FROM " + table
	if filter.Status != "" {
		return base + " WHERE status = $1", []interface{}{string(filter.Status)}
	}
	return base, nil
}
