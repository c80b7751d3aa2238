package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

// DashboardRepository runs the back office aggregate queries.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// AdminOverview returns table counters in one round trip.
func (r *DashboardRepository) AdminOverview(ctx context.Context) (*models.AdminOverview, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM profiles) AS learners,
	(SELECT COUNT(*) FROM surahs) AS surahs,
	(SELECT COUNT(*) FROM questions) AS questions,
	(SELECT COUNT(*) FROM answers) AS answers,
	(SELECT COUNT(*) FROM answers WHERE marks IS NULL) AS ungraded_answers,
	(SELECT COALESCE(SUM(marks), 0) FROM answers) AS total_marks,
	(SELECT COUNT(*) FROM donations WHERE status = 'pending') AS pending_donations,
	(SELECT COUNT(*) FROM whatsapp_joins WHERE status = 'pending') AS pending_joins`
	var overview models.AdminOverview
	if err := r.db.GetContext(ctx, &overview, query); err != nil {
		return nil, fmt.Errorf("admin overview: %w", err)
	}
	return &overview, nil
}
