package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type whatsAppJoinRepository interface {
	Create(ctx context.Context, j *models.WhatsAppJoin) error
	List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, int, error)
	Review(ctx context.Context, id string, status models.ReviewStatus) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// WhatsAppJoinServiceConfig holds the fallback links.
type WhatsAppJoinServiceConfig struct {
	GroupLink    string
	DonationLink string
}

// WhatsAppJoinService records course group join requests.
type WhatsAppJoinService struct {
	repo      whatsAppJoinRepository
	settings  settingsReader
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       WhatsAppJoinServiceConfig
}

// NewWhatsAppJoinService constructs a WhatsAppJoinService.
func NewWhatsAppJoinService(repo whatsAppJoinRepository, settings settingsReader, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg WhatsAppJoinServiceConfig) *WhatsAppJoinService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DonationLink == "" {
		cfg.DonationLink = "/hadiya"
	}
	return &WhatsAppJoinService{
		repo:      repo,
		settings:  settings,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Join stores the request. Free joins get the group link right away, paid joins are
// sent to the donation page.
func (s *WhatsAppJoinService) Join(ctx context.Context, req models.WhatsAppJoinRequest) (*models.WhatsAppJoinResult, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	joinType := req.JoinType
	if joinType == "" {
		joinType = models.JoinFree
	}

	details := map[string]string{}
	if name == "" {
		details["name"] = MsgNamePhoneRequired
	}
	if phone == "" {
		details["phone"] = MsgNamePhoneRequired
	}
	if !joinType.Valid() {
		details["join_type"] = "must be one of: free paid"
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, MsgNamePhoneRequired, details)
	}

	join := &models.WhatsAppJoin{Name: name, Phone: phone, JoinType: joinType, Status: models.StatusPending}
	if err := s.repo.Create(ctx, join); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save join request")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}

	result := &models.WhatsAppJoinResult{Join: *join}
	if joinType == models.JoinPaid {
		result.DonationLink = s.cfg.DonationLink
		return result, nil
	}
	result.GroupLink = s.groupLink(ctx)
	return result, nil
}

func (s *WhatsAppJoinService) groupLink(ctx context.Context) string {
	if s.settings != nil {
		values, err := s.settings.Map(ctx)
		if err != nil {
			s.logger.Warn("failed to read whatsapp link setting", zap.Error(err))
		} else if link := strings.TrimSpace(values[models.SettingWhatsAppLink]); link != "" {
			return link
		}
	}
	return s.cfg.GroupLink
}

// List returns join requests newest first.
func (s *WhatsAppJoinService) List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid status filter", map[string]string{"status": "must be one of: pending verified rejected"})
	}
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list join requests")
	}
	if rows == nil {
		rows = []models.WhatsAppJoin{}
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Review moves a pending request to verified or rejected.
func (s *WhatsAppJoinService) Review(ctx context.Context, id string, req models.ReviewRequest, actor *models.JWTClaims) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid review payload")
	}
	ok, err := s.repo.Review(ctx, id, req.Status)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review join request")
	}
	if !ok {
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load join request")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "join request not found")
		}
		return appErrors.Clone(appErrors.ErrInvalidStateTransition, "join request is no longer pending")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	recordReview(ctx, s.audit, s.logger, actor, models.AuditActionJoinReview, "whatsapp_join", id, models.StatusPending, req.Status)
	return nil
}
