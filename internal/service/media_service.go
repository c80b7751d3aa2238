package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

// mediaSettingKeys are the settings whose value is an uploaded image.
var mediaSettingKeys = map[string]string{
	models.SettingLogoURL:       "logo",
	models.SettingHeroBannerURL: "hero-banner",
	models.SettingBkashQRURL:    "bkash-qr",
	models.SettingNagadQRURL:    "nagad-qr",
}

// MediaServiceConfig tunes image uploads.
type MediaServiceConfig struct {
	MaxUploadBytes int64
	ImageMaxWidth  int
}

// MediaService uploads branding and QR images and points the owning setting at them.
type MediaService struct {
	settings settingsWriter
	blobs    blobUploader
	cleanup  *BlobCleanupService
	logger   *zap.Logger
	cfg      MediaServiceConfig
	now      func() time.Time
}

// NewMediaService constructs a MediaService.
func NewMediaService(settings settingsWriter, blobs blobUploader, cleanup *BlobCleanupService, logger *zap.Logger, cfg MediaServiceConfig) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.ImageMaxWidth <= 0 {
		cfg.ImageMaxWidth = 1600
	}
	return &MediaService{
		settings: settings,
		blobs:    blobs,
		cleanup:  cleanup,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// UploadSettingImage stores an image in the logos bucket and saves its public URL
// under key. The previously stored image is removed in the background.
func (s *MediaService) UploadSettingImage(ctx context.Context, key string, r io.Reader, filename string, actor *models.JWTClaims) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	base, ok := mediaSettingKeys[key]
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid upload target", map[string]string{"key": "must be one of: logo_url hero_banner_url bkash_qr_url nagad_qr_url"})
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file is too large")
	}
	img, err := storage.PrepareImage(bytes.NewReader(data), filename, s.cfg.ImageMaxWidth)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return nil, appErrors.Clone(appErrors.ErrUnsupportedMediaType, "unsupported image")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process image")
	}

	previous := ""
	if values, err := s.settings.Map(ctx); err == nil {
		previous = values[key]
	} else {
		s.logger.Warn("failed to read previous setting value", zap.String("key", key), zap.Error(err))
	}

	objectPath := storage.UniqueName(base, img.Ext, s.now())
	if err := s.blobs.Upload(ctx, storage.BucketLogos, objectPath, bytes.NewReader(img.Data), img.ContentType, false); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload image")
	}
	url := s.blobs.PublicURL(storage.BucketLogos, objectPath)

	setting := models.Setting{Key: key, Value: url}
	if err := s.settings.Save(ctx, []models.Setting{setting}, actor); err != nil {
		s.cleanup.ScheduleURLs(url)
		return nil, err
	}
	if previous != url {
		s.cleanup.ScheduleURLs(previous)
	}
	return &setting, nil
}
