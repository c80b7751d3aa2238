package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/repository"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

// MsgAlreadyAnswered is shown when a learner answers the same question twice.
const MsgAlreadyAnswered = "আপনি এই প্রশ্নের উত্তর আগেই দিয়েছেন"

type answerRepository interface {
	Create(ctx context.Context, a *models.Answer) error
	FindByID(ctx context.Context, id string) (*models.Answer, error)
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	Grade(ctx context.Context, id string, marks int, feedback *string, markedAt time.Time) error
}

type questionReader interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
}

// AnswerService accepts learner submissions and their grading.
type AnswerService struct {
	answers   answerRepository
	questions questionReader
	settings  settingsReader
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnswerService constructs an AnswerService.
func NewAnswerService(answers answerRepository, questions questionReader, settings settingsReader, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *AnswerService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		answers:   answers,
		questions: questions,
		settings:  settings,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the learner's single answer to a question. With auto_marking enabled
// the answer is marked immediately.
func (s *AnswerService) Submit(ctx context.Context, authUserID, questionID string, req models.SubmitAnswerRequest) (*models.Answer, error) {
	req.AnswerText = strings.TrimSpace(req.AnswerText)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid answer payload")
	}
	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	answer := &models.Answer{
		UserID:      authUserID,
		QuestionID:  q.ID,
		AnswerText:  req.AnswerText,
		SubmittedAt: s.now(),
	}
	if s.autoMarking(ctx) {
		marks := q.AutoMark(answer.AnswerText)
		markedAt := answer.SubmittedAt
		answer.Marks = &marks
		answer.MarkedAt = &markedAt
	}

	if err := s.answers.Create(ctx, answer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, MsgAlreadyAnswered)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save answer")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	return answer, nil
}

func (s *AnswerService) autoMarking(ctx context.Context) bool {
	if s.settings == nil {
		return false
	}
	values, err := s.settings.Map(ctx)
	if err != nil {
		s.logger.Warn("failed to read auto marking setting", zap.Error(err))
		return false
	}
	return Lookup(values, models.SettingAutoMarking, SettingDefault(models.SettingAutoMarking)) == "true"
}

// Submissions lists answers joined with question, surah and learner.
func (s *AnswerService) Submissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.answers.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	if rows == nil {
		rows = []models.Submission{}
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Grade records marks and feedback for an answer.
func (s *AnswerService) Grade(ctx context.Context, id string, req models.GradeRequest, actor *models.JWTClaims) (*models.Answer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	feedback := trimmedPtr(req.Feedback)
	if err := s.answers.Grade(ctx, id, req.Marks, feedback, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "answer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade answer")
	}
	answer, err := s.answers.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload answer")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     userIDPtr(actor),
			Action:     models.AuditActionAnswerGrade,
			Resource:   "answer",
			ResourceID: strPtr(id),
			IPAddress:  "system",
			UserAgent:  "answer-service",
		}); err != nil {
			s.logger.Warn("failed to record grade audit", zap.Error(err))
		}
	}
	return answer, nil
}
