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

const questionColumns = `id, surah_id, question_text, options, correct_answer, points, question_order, created_at, updated_at`

// QuestionRepository manages MCQ questions.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// List returns questions ordered by surah and position, optionally for one surah.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []interface{}
	if filter.SurahID != "" {
		query += ` WHERE surah_id = $1`
		args = append(args, filter.SurahID)
	}
	query += ` ORDER BY surah_id, question_order ASC, created_at ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// FindByID returns a question by id.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1 LIMIT 1`
	var q models.Question
	if err := r.db.GetContext(ctx, &q, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &q, nil
}

// FindByIDs loads the given questions in one query.
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE id IN (%s)`, questionColumns, placeholders(len(ids)))
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, stringArgs(ids)...); err != nil {
		return nil, fmt.Errorf("find questions by ids: %w", err)
	}
	return questions, nil
}

// Create inserts a question.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	const query = `INSERT INTO questions (id, surah_id, question_text, options, correct_answer, points, question_order, created_at, updated_at)
VALUES (:id, :surah_id, :question_text, :options, :correct_answer, :points, :question_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// Update writes the editable columns.
func (r *QuestionRepository) Update(ctx context.Context, q *models.Question) error {
	q.UpdatedAt = time.Now().UTC()
	const query = `UPDATE questions SET surah_id = :surah_id, question_text = :question_text, options = :options, correct_answer = :correct_answer,
points = :points, question_order = :question_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, q)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireAffected(res)
}
