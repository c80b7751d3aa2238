package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type questionRepository interface {
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
	Create(ctx context.Context, q *models.Question) error
	Update(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id string) error
}

type surahByID interface {
	FindByID(ctx context.Context, id string) (*models.Surah, error)
}

// QuestionService manages the MCQ bank.
type QuestionService struct {
	repo      questionRepository
	surahs    surahByID
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(repo questionRepository, surahs surahByID, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{repo: repo, surahs: surahs, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns questions ordered by question_order, optionally for one surah.
func (s *QuestionService) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	questions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return questions, nil
}

// ListPublic returns a surah's questions without the answer key.
func (s *QuestionService) ListPublic(ctx context.Context, surahID string) ([]models.PublicQuestion, error) {
	questions, err := s.List(ctx, models.QuestionFilter{SurahID: surahID})
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.Public())
	}
	return out, nil
}

// Get returns one question.
func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return q, nil
}

// Create adds a question to a surah.
func (s *QuestionService) Create(ctx context.Context, req models.QuestionRequest, actor *models.JWTClaims) (*models.Question, error) {
	q := &models.Question{ID: uuid.NewString()}
	if err := s.apply(ctx, q, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	s.changed(ctx, actor, q.ID, "create")
	return q, nil
}

// Update replaces a question.
func (s *QuestionService) Update(ctx context.Context, id string, req models.QuestionRequest, actor *models.JWTClaims) (*models.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, q, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	s.changed(ctx, actor, q.ID, "update")
	return q, nil
}

// Delete removes a question and its answers.
func (s *QuestionService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	s.changed(ctx, actor, id, "delete")
	return nil
}

func (s *QuestionService) apply(ctx context.Context, q *models.Question, req models.QuestionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid question payload")
	}
	options := make([]string, len(req.Options))
	blank := false
	for i, opt := range req.Options {
		options[i] = strings.TrimSpace(opt)
		blank = blank || options[i] == ""
	}
	details := map[string]string{}
	switch {
	case len(options) < 2:
		details["options"] = "at least 2 options are required"
	case blank:
		details["options"] = "options must not be blank"
	case req.CorrectAnswer < 0 || req.CorrectAnswer >= len(options):
		details["correct_answer"] = "must be between 0 and " + strconv.Itoa(len(options)-1)
	}
	if req.Points < 0 {
		details["points"] = "must be at least 0"
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, "invalid question payload", details)
	}
	if _, err := s.surahs.FindByID(ctx, req.SurahID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.WithDetails(appErrors.ErrValidation, "invalid question payload", map[string]string{"surah_id": "unknown surah"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load surah")
	}

	q.SurahID = req.SurahID
	q.Text = strings.TrimSpace(req.Text)
	q.Options = options
	q.CorrectAnswer = req.CorrectAnswer
	q.Points = req.Points
	q.Order = req.Order
	return nil
}

func (s *QuestionService) changed(ctx context.Context, actor *models.JWTClaims, id, op string) {
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionQuestionChange,
		Resource:   "question",
		ResourceID: strPtr(id),
		NewValues:  []byte(`{"op":"` + op + `"}`),
		IPAddress:  "system",
		UserAgent:  "question-service",
	}); err != nil {
		s.logger.Warn("failed to record question audit", zap.Error(err))
	}
}
