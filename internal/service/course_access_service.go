package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

// Learner-facing messages of the access dialog.
const (
	MsgIdentifierRequired = "আপনার User ID দিন (যেমন: QUR-0001)"
	MsgIdentifierNotFound = "এই User ID খুঁজে পাওয়া যায়নি। রেজিস্ট্রেশনের সময় পাওয়া আইডি দিন।"
	MsgVerificationFailed = "যাচাই করা সম্ভব হয়নি, কিছুক্ষণ পর আবার চেষ্টা করুন।"
	MsgTooManyAttempts    = "অনেকবার চেষ্টা করা হয়েছে, কিছুক্ষণ পর আবার চেষ্টা করুন।"
	MsgComingSoon         = "শীঘ্রই আপলোড হবে"
)

type surahByNumber interface {
	FindByNumber(ctx context.Context, number int) (*models.Surah, error)
}

type identifierVerifier interface {
	VerifyUserID(ctx context.Context, identifier string) (bool, error)
}

type attemptLimiter interface {
	Enabled() bool
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type downloadSigner interface {
	Generate(obj storage.Object) (string, time.Time, error)
}

// AccessRequest is a learner's attempt to unlock a surah.
type AccessRequest struct {
	SurahNumber int
	Identifier  string
	// ClientKey identifies the caller for attempt limiting, usually the client IP.
	ClientKey string
}

// CourseAccessServiceConfig configures link generation.
type CourseAccessServiceConfig struct {
	// PublicBase is the blob store's public URL prefix, used to recognise own PDFs.
	PublicBase string
	// DownloadURL is the absolute or site-relative signed download endpoint.
	DownloadURL string
}

// CourseAccessService verifies learner identifiers and hands out gated surah links.
type CourseAccessService struct {
	surahs   surahByNumber
	verifier identifierVerifier
	settings settingsReader
	limiter  attemptLimiter
	signer   downloadSigner
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      CourseAccessServiceConfig
}

// NewCourseAccessService constructs a CourseAccessService. limiter may be nil.
func NewCourseAccessService(surahs surahByNumber, verifier identifierVerifier, settings settingsReader, limiter attemptLimiter, signer downloadSigner, metrics *MetricsService, logger *zap.Logger, cfg CourseAccessServiceConfig) *CourseAccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = "/files/download"
	}
	return &CourseAccessService{
		surahs:   surahs,
		verifier: verifier,
		settings: settings,
		limiter:  limiter,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Verify runs the access dialog for one submission: unverified, then verifying, then
// verified or back to unverified with a learner-facing error.
func (s *CourseAccessService) Verify(ctx context.Context, req AccessRequest) (*models.SurahAccess, error) {
	dialog := models.NewAccessDialog()
	if err := dialog.Submit(req.Identifier); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, MsgIdentifierRequired, map[string]string{"identifier": MsgIdentifierRequired})
	}

	surah, err := s.surahs.FindByNumber(ctx, req.SurahNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "surah not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load surah")
	}

	limitKey := req.ClientKey
	if s.limiter != nil && s.limiter.Enabled() && limitKey != "" {
		allowed, err := s.limiter.Allow(ctx, limitKey)
		if err != nil {
			s.logger.Warn("attempt limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordAccessCheck("limited")
			return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, MsgTooManyAttempts)
		}
	}

	ok, verifyErr := s.verifier.VerifyUserID(ctx, dialog.Identifier)
	if err := dialog.Resolve(ok, verifyErr); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "access dialog out of sequence")
	}
	switch {
	case verifyErr != nil:
		s.metrics.RecordAccessCheck("error")
		s.logger.Error("identifier verification failed", zap.Int("surah", req.SurahNumber), zap.Error(verifyErr))
		return nil, appErrors.Wrap(verifyErr, appErrors.ErrVerificationFailed.Code, appErrors.ErrVerificationFailed.Status, MsgVerificationFailed)
	case dialog.State != models.AccessVerified:
		s.metrics.RecordAccessCheck("rejected")
		return nil, appErrors.WithDetails(appErrors.ErrUnverifiedIdentifier, MsgIdentifierNotFound, map[string]string{"identifier": MsgIdentifierNotFound})
	}
	s.metrics.RecordAccessCheck("verified")
	if s.limiter != nil && s.limiter.Enabled() && limitKey != "" {
		if err := s.limiter.Reset(ctx, limitKey); err != nil {
			s.logger.Warn("failed to reset attempt counter", zap.Error(err))
		}
	}

	access := &models.SurahAccess{
		State:      dialog.State,
		Identifier: dialog.Identifier,
		Surah:      *surah,
		PDF:        s.pdfLink(surah),
		Exam:       s.examLink(ctx, surah),
	}
	// Gated URLs travel only inside PDF and Exam.
	access.Surah.PDFURL = nil
	access.Surah.GoogleFormLink = nil
	return access, nil
}

func (s *CourseAccessService) pdfLink(surah *models.Surah) models.GatedLink {
	if !surah.HasPDF() {
		return models.GatedLink{Placeholder: MsgComingSoon}
	}
	raw := *surah.PDFURL
	obj, own := storage.ObjectFromURL(s.cfg.PublicBase, raw)
	if !own || s.signer == nil {
		return models.GatedLink{Available: true, URL: raw}
	}
	token, expires, err := s.signer.Generate(obj)
	if err != nil {
		s.logger.Warn("failed to sign pdf link", zap.String("surah_id", surah.ID), zap.Error(err))
		return models.GatedLink{Available: true, URL: raw}
	}
	return models.GatedLink{Available: true, URL: signedDownloadURL(s.cfg.DownloadURL, token), ExpiresAt: &expires}
}

func (s *CourseAccessService) examLink(ctx context.Context, surah *models.Surah) models.GatedLink {
	if surah.HasExamLink() {
		return models.GatedLink{Available: true, URL: *surah.GoogleFormLink}
	}
	if s.settings != nil {
		values, err := s.settings.Map(ctx)
		if err != nil {
			s.logger.Warn("failed to load exam link fallback", zap.Error(err))
		} else if link := strings.TrimSpace(values[models.SettingGoogleFormLink]); link != "" {
			return models.GatedLink{Available: true, URL: link}
		}
	}
	return models.GatedLink{Placeholder: MsgComingSoon}
}

func signedDownloadURL(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
