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

const surahColumns = `id, surah_number, surah_name_arabic, surah_name_bengali, surah_name_english, total_ayat, revelation_type, pdf_url, google_form_link, explanation, created_at, updated_at`

// SurahRepository manages course units.
type SurahRepository struct {
	db *sqlx.DB
}

// NewSurahRepository constructs the repository.
func NewSurahRepository(db *sqlx.DB) *SurahRepository {
	return &SurahRepository{db: db}
}

// List returns all surahs ordered by number.
func (r *SurahRepository) List(ctx context.Context) ([]models.Surah, error) {
	query := `SELECT ` + surahColumns + ` FROM surahs ORDER BY surah_number ASC`
	var surahs []models.Surah
	if err := r.db.SelectContext(ctx, &surahs, query); err != nil {
		return nil, fmt.Errorf("list surahs: %w", err)
	}
	return surahs, nil
}

// FindByID returns a surah by id.
func (r *SurahRepository) FindByID(ctx context.Context, id string) (*models.Surah, error) {
	return r.findOne(ctx, "id", id)
}

// FindByNumber returns a surah by its chapter number.
func (r *SurahRepository) FindByNumber(ctx context.Context, number int) (*models.Surah, error) {
	return r.findOne(ctx, "surah_number", number)
}

func (r *SurahRepository) findOne(ctx context.Context, column string, value interface{}) (*models.Surah, error) {
	query := fmt.Sprintf(`SELECT %s FROM surahs WHERE %s = $1 LIMIT 1`, surahColumns, column)
	var s models.Surah
	if err := r.db.GetContext(ctx, &s, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find surah by %s: %w", column, err)
	}
	return &s, nil
}

// Create inserts a surah.
func (r *SurahRepository) Create(ctx context.Context, s *models.Surah) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	const query = `INSERT INTO surahs (id, surah_number, surah_name_arabic, surah_name_bengali, surah_name_english, total_ayat, revelation_type, pdf_url, google_form_link, explanation, created_at, updated_at)
VALUES (:id, :surah_number, :surah_name_arabic, :surah_name_bengali, :surah_name_english, :total_ayat, :revelation_type, :pdf_url, :google_form_link, :explanation, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create surah: %w", err)
	}
	return nil
}

// Update writes every editable column.
func (r *SurahRepository) Update(ctx context.Context, s *models.Surah) error {
	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE surahs SET surah_number = :surah_number, surah_name_arabic = :surah_name_arabic, surah_name_bengali = :surah_name_bengali,
surah_name_english = :surah_name_english, total_ayat = :total_ayat, revelation_type = :revelation_type, pdf_url = :pdf_url,
google_form_link = :google_form_link, explanation = :explanation, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update surah: %w", err)
	}
	return requireAffected(res)
}

// SetPDFURL stores or clears the PDF link.
func (r *SurahRepository) SetPDFURL(ctx context.Context, id string, url *string) error {
	const query = `UPDATE surahs SET pdf_url = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set surah pdf: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a surah together with its questions.
func (r *SurahRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM surahs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete surah: %w", err)
	}
	return requireAffected(res)
}
