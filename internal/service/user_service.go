package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type profileRepository interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	All(ctx context.Context) ([]models.Profile, error)
}

type submissionLister interface {
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
}

// UserDetail is a learner with their submitted answers.
type UserDetail struct {
	Profile models.Profile      `json:"profile"`
	Answers []models.Submission `json:"answers"`
}

// UserService backs the admin learner screens.
type UserService struct {
	profiles profileRepository
	answers  submissionLister
	logger   *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(profiles profileRepository, answers submissionLister, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{profiles: profiles, answers: answers, logger: logger}
}

// List returns paginated profiles and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}

	return profiles, pagination, nil
}

// Get returns a learner by public user id (QUR-0001) with every answer they submitted.
func (s *UserService) Get(ctx context.Context, userID string) (*UserDetail, error) {
	profile, err := s.profiles.FindByUserID(ctx, strings.ToUpper(strings.TrimSpace(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	answers, err := collectPages(func(page int) ([]models.Submission, int, error) {
		return s.answers.ListSubmissions(ctx, models.SubmissionFilter{UserID: profile.AuthUserID, Page: page, PageSize: exportPageSize})
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user answers")
	}
	return &UserDetail{Profile: *profile, Answers: answers}, nil
}
