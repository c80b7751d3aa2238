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
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

// Messages of the public hadiya and join forms.
const (
	MsgNamePhoneRequired     = "নাম ও ফোন নম্বর দিন"
	MsgPaymentMethodInvalid  = "বিকাশ বা নগদ নির্বাচন করুন"
	MsgTransactionIDRequired = "ট্রানজেকশন আইডি দিন"
	MsgAmountInvalid         = "সঠিক পরিমাণ দিন"
)

type donationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, int, error)
	FindByID(ctx context.Context, id string) (*models.Donation, error)
	Review(ctx context.Context, id string, status models.ReviewStatus, note *string, at time.Time) (bool, error)
}

// DonationService records reported hadiya payments and their review.
type DonationService struct {
	repo      donationRepository
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDonationService constructs a DonationService.
func NewDonationService(repo donationRepository, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *DonationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonationService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a pending donation report.
func (s *DonationService) Create(ctx context.Context, req models.DonationRequest) (*models.Donation, error) {
	name := strings.TrimSpace(req.DonorName)
	phone := strings.TrimSpace(req.DonorPhone)
	txID := strings.TrimSpace(req.TransactionID)
	method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))

	details := map[string]string{}
	if name == "" {
		details["donor_name"] = MsgNamePhoneRequired
	}
	if phone == "" {
		details["donor_phone"] = MsgNamePhoneRequired
	}
	if !method.Valid() {
		details["payment_method"] = MsgPaymentMethodInvalid
	}
	if txID == "" {
		details["transaction_id"] = MsgTransactionIDRequired
	}
	if req.Amount != nil && *req.Amount <= 0 {
		details["amount"] = MsgAmountInvalid
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid donation payload", details)
	}

	donation := &models.Donation{
		DonorName:     name,
		DonorPhone:    strPtr(phone),
		PaymentMethod: method,
		TransactionID: txID,
		Amount:        req.Amount,
		Status:        models.StatusPending,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save donation")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	return donation, nil
}

// List returns donations newest first.
func (s *DonationService) List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid status filter", map[string]string{"status": "must be one of: pending verified rejected"})
	}
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
	}
	if rows == nil {
		rows = []models.Donation{}
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Review verifies or rejects a pending donation.
func (s *DonationService) Review(ctx context.Context, id string, req models.ReviewRequest, actor *models.JWTClaims) (*models.Donation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation")
	}
	if !current.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "donation is already "+string(current.Status))
	}
	ok, err := s.repo.Review(ctx, id, req.Status, trimmedPtr(req.AdminNote), s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review donation")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "donation was reviewed concurrently")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload donation")
	}
	if err := s.cache.Invalidate(ctx, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate overview cache", zap.Error(err))
	}
	recordReview(ctx, s.audit, s.logger, actor, models.AuditActionDonationReview, "donation", id, current.Status, req.Status)
	return updated, nil
}

func recordReview(ctx context.Context, audit auditWriter, logger *zap.Logger, actor *models.JWTClaims, action, resource, id string, from, to models.ReviewStatus) {
	if audit == nil {
		return
	}
	if err := audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   resource,
		ResourceID: strPtr(id),
		OldValues:  []byte(`{"status":"` + string(from) + `"}`),
		NewValues:  []byte(`{"status":"` + string(to) + `"}`),
		IPAddress:  "system",
		UserAgent:  resource + "-review",
	}); err != nil {
		logger.Warn("failed to record review audit", zap.String("resource", resource), zap.Error(err))
	}
}
