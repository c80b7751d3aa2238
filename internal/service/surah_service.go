package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

const pdfContentType = "application/pdf"

type surahRepository interface {
	List(ctx context.Context) ([]models.Surah, error)
	FindByID(ctx context.Context, id string) (*models.Surah, error)
	FindByNumber(ctx context.Context, number int) (*models.Surah, error)
	Create(ctx context.Context, s *models.Surah) error
	Update(ctx context.Context, s *models.Surah) error
	SetPDFURL(ctx context.Context, id string, url *string) error
	Delete(ctx context.Context, id string) error
}

// SurahServiceConfig bounds PDF uploads and list caching.
type SurahServiceConfig struct {
	MaxUploadBytes int64
	CacheTTL       time.Duration
}

// SurahService manages the course units.
type SurahService struct {
	repo      surahRepository
	blobs     blobUploader
	cleanup   *BlobCleanupService
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SurahServiceConfig
}

// NewSurahService constructs a SurahService.
func NewSurahService(repo surahRepository, blobs blobUploader, cleanup *BlobCleanupService, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg SurahServiceConfig) *SurahService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &SurahService{
		repo:      repo,
		blobs:     blobs,
		cleanup:   cleanup,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns every surah ordered by number, gated links included.
func (s *SurahService) List(ctx context.Context) ([]models.Surah, error) {
	surahs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list surahs")
	}
	if surahs == nil {
		surahs = []models.Surah{}
	}
	return surahs, nil
}

// Summaries is the cached public listing.
func (s *SurahService) Summaries(ctx context.Context) ([]models.SurahSummary, error) {
	var out []models.SurahSummary
	_, err := s.cache.Fetch(ctx, CacheKeySurahList, &out, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		surahs, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		summaries := make([]models.SurahSummary, 0, len(surahs))
		for _, surah := range surahs {
			summaries = append(summaries, surah.Summary())
		}
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one surah by id.
func (s *SurahService) Get(ctx context.Context, id string) (*models.Surah, error) {
	surah, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "surah not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load surah")
	}
	return surah, nil
}

// GetByNumber returns the public view of one surah.
func (s *SurahService) GetByNumber(ctx context.Context, number int) (*models.SurahSummary, error) {
	surah, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "surah not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load surah")
	}
	summary := surah.Summary()
	return &summary, nil
}

// Create adds a surah. Surah numbers are unique.
func (s *SurahService) Create(ctx context.Context, req models.SurahRequest, actor *models.JWTClaims) (*models.Surah, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid surah payload")
	}
	if existing, err := s.repo.FindByNumber(ctx, req.Number); err == nil && existing != nil {
		return nil, appErrors.WithDetails(appErrors.ErrConflict, "surah number already exists", map[string]string{"surah_number": "already exists"})
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check surah number")
	}

	surah := &models.Surah{ID: uuid.NewString()}
	applySurahRequest(surah, req)
	if err := s.repo.Create(ctx, surah); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create surah")
	}
	s.changed(ctx, actor, models.AuditActionSurahCreate, surah.ID)
	return surah, nil
}

// Update replaces the editable fields. The PDF link is managed by UploadPDF and RemovePDF.
func (s *SurahService) Update(ctx context.Context, id string, req models.SurahRequest, actor *models.JWTClaims) (*models.Surah, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid surah payload")
	}
	surah, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Number != surah.Number {
		if other, err := s.repo.FindByNumber(ctx, req.Number); err == nil && other != nil && other.ID != id {
			return nil, appErrors.WithDetails(appErrors.ErrConflict, "surah number already exists", map[string]string{"surah_number": "already exists"})
		}
	}
	applySurahRequest(surah, req)
	if err := s.repo.Update(ctx, surah); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "surah not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update surah")
	}
	s.changed(ctx, actor, models.AuditActionSurahUpdate, surah.ID)
	return surah, nil
}

// SetExamLink sets or clears the per-surah exam form link.
func (s *SurahService) SetExamLink(ctx context.Context, id string, req models.ExamLinkRequest, actor *models.JWTClaims) (*models.Surah, error) {
	if req.GoogleFormLink != nil {
		trimmed := strings.TrimSpace(*req.GoogleFormLink)
		req.GoogleFormLink = strPtr(trimmed)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam link")
	}
	surah, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	surah.GoogleFormLink = req.GoogleFormLink
	if err := s.repo.Update(ctx, surah); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam link")
	}
	s.changed(ctx, actor, models.AuditActionSurahUpdate, surah.ID)
	return surah, nil
}

// Delete removes the surah, its questions and schedules removal of its PDF.
func (s *SurahService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	surah, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "surah not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete surah")
	}
	if surah.HasPDF() {
		s.cleanup.ScheduleURLs(*surah.PDFURL)
	}
	s.changed(ctx, actor, models.AuditActionSurahDelete, id)
	return nil
}

// UploadPDF stores a new lesson PDF and replaces the surah's link. The previous file is
// removed in the background.
func (s *SurahService) UploadPDF(ctx context.Context, id string, r io.Reader, filename string, actor *models.JWTClaims) (*models.Surah, error) {
	surah, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
	}
	if !isPDF(data, filename) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMediaType, "only PDF files are accepted")
	}

	objectPath := storage.UniqueName(fmt.Sprintf("surah-%d", surah.Number), "pdf", time.Now().UTC())
	if err := s.blobs.Upload(ctx, storage.BucketSurahPDFs, objectPath, bytes.NewReader(data), pdfContentType, false); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pdf")
	}
	publicURL := s.blobs.PublicURL(storage.BucketSurahPDFs, objectPath)
	if err := s.repo.SetPDFURL(ctx, id, &publicURL); err != nil {
		s.cleanup.ScheduleURLs(publicURL)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save pdf link")
	}
	if surah.HasPDF() && *surah.PDFURL != publicURL {
		s.cleanup.ScheduleURLs(*surah.PDFURL)
	}
	surah.PDFURL = &publicURL
	s.changed(ctx, actor, models.AuditActionSurahUpdate, id)
	return surah, nil
}

// RemovePDF clears the surah's PDF link and schedules removal of the file.
func (s *SurahService) RemovePDF(ctx context.Context, id string, actor *models.JWTClaims) (*models.Surah, error) {
	surah, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !surah.HasPDF() {
		return surah, nil
	}
	if err := s.repo.SetPDFURL(ctx, id, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear pdf link")
	}
	s.cleanup.ScheduleURLs(*surah.PDFURL)
	surah.PDFURL = nil
	s.changed(ctx, actor, models.AuditActionSurahUpdate, id)
	return surah, nil
}

func (s *SurahService) changed(ctx context.Context, actor *models.JWTClaims, action, id string) {
	if err := s.cache.Invalidate(ctx, CacheKeySurahList, CacheKeyHomepage, CacheKeyAdminOverview); err != nil {
		s.logger.Warn("failed to invalidate surah caches", zap.Error(err))
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   "surah",
		ResourceID: strPtr(id),
		IPAddress:  "system",
		UserAgent:  "surah-service",
	}); err != nil {
		s.logger.Warn("failed to record surah audit", zap.Error(err))
	}
}

func applySurahRequest(surah *models.Surah, req models.SurahRequest) {
	surah.Number = req.Number
	surah.NameArabic = strings.TrimSpace(req.NameArabic)
	surah.NameBengali = strings.TrimSpace(req.NameBengali)
	surah.NameEnglish = strings.TrimSpace(req.NameEnglish)
	surah.TotalAyat = req.TotalAyat
	surah.RevelationType = req.RevelationType
	surah.GoogleFormLink = trimmedPtr(req.GoogleFormLink)
	surah.Explanation = trimmedPtr(req.Explanation)
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	return strPtr(strings.TrimSpace(*v))
}

func isPDF(data []byte, filename string) bool {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && ext != ".pdf" {
		return false
	}
	return http.DetectContentType(data) == pdfContentType
}
