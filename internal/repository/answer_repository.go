package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
)

const answerColumns = `id, user_id, question_id, answer_text, marks, feedback, marked_at, submitted_at`

// AnswerRepository stores learner submissions and their grading.
type AnswerRepository struct {
	db *sqlx.DB
}

// NewAnswerRepository constructs the repository.
func NewAnswerRepository(db *sqlx.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// Create inserts the answer. A second answer for the same (user, question) yields ErrDuplicate.
func (r *AnswerRepository) Create(ctx context.Context, a *models.Answer) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO answers (id, user_id, question_id, answer_text, marks, feedback, marked_at, submitted_at)
VALUES (:id, :user_id, :question_id, :answer_text, :marks, :feedback, :marked_at, :submitted_at)
ON CONFLICT (user_id, question_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create answer rows: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListByUser returns a learner's answers, newest first.
func (r *AnswerRepository) ListByUser(ctx context.Context, userID string) ([]models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE user_id = $1 ORDER BY submitted_at DESC`
	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, query, userID); err != nil {
		return nil, fmt.Errorf("list answers by user: %w", err)
	}
	return answers, nil
}

// FindByID returns one answer.
func (r *AnswerRepository) FindByID(ctx context.Context, id string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE id = $1 LIMIT 1`
	var a models.Answer
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find answer: %w", err)
	}
	return &a, nil
}

// ListSubmissions returns answers joined with question, surah and learner for grading.
func (r *AnswerRepository) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	base := `FROM answers a
JOIN questions q ON q.id = a.question_id
JOIN surahs s ON s.id = q.surah_id
LEFT JOIN profiles p ON p.auth_user_id = a.user_id`
	var conditions []string
	var args []interface{}
	if filter.SurahID != "" {
		args = append(args, filter.SurahID)
		conditions = append(conditions, fmt.Sprintf("q.surah_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if filter.Ungraded {
		conditions = append(conditions, "a.marks IS NULL")
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf(`SELECT a.id, a.user_id, a.question_id, a.answer_text, a.marks, a.feedback, a.marked_at, a.submitted_at,
q.question_text, q.points AS question_points, s.id AS surah_id, s.surah_number, s.surah_name_bengali AS surah_name,
p.name AS learner_name, p.user_id AS learner_user_id
%s ORDER BY a.submitted_at DESC LIMIT %d OFFSET %d`, base, limit, offset)
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return subs, total, nil
}

// Grade records marks and feedback.
func (r *AnswerRepository) Grade(ctx context.Context, id string, marks int, feedback *string, markedAt time.Time) error {
	const query = `UPDATE answers SET marks = $2, feedback = $3, marked_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, marks, feedback, markedAt)
	if err != nil {
		return fmt.Errorf("grade answer: %w", err)
	}
	return requireAffected(res)
}
