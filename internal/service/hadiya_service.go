package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/render"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

const (
	defaultHadiyaDescription = "আপনার হাদিয়া কোর্সটি চালিয়ে যেতে সাহায্য করে।"
	qrImageSize              = 320
)

type blobReader interface {
	Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error)
	PublicBase() string
}

// QRImage is either inline PNG data or a redirect to an externally hosted image.
type QRImage struct {
	Data        []byte
	ContentType string
	RedirectURL string
}

// HadiyaService serves the payment page data and the wallet QR codes.
type HadiyaService struct {
	settings settingsReader
	blobs    blobReader
	logger   *zap.Logger
}

// NewHadiyaService constructs a HadiyaService. blobs may be nil.
func NewHadiyaService(settings settingsReader, blobs blobReader, logger *zap.Logger) *HadiyaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HadiyaService{settings: settings, blobs: blobs, logger: logger}
}

// Info returns the description, wallet numbers and QR locations. A wallet with a
// number but no uploaded QR gets a generated one.
func (s *HadiyaService) Info(ctx context.Context) (*models.HadiyaInfo, error) {
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	info := &models.HadiyaInfo{
		Description: Lookup(values, models.SettingHadiyaDescription, defaultHadiyaDescription),
		BkashNumber: strings.TrimSpace(values[models.SettingBkashNumber]),
		NagadNumber: strings.TrimSpace(values[models.SettingNagadNumber]),
		BkashQRURL:  strings.TrimSpace(values[models.SettingBkashQRURL]),
		NagadQRURL:  strings.TrimSpace(values[models.SettingNagadQRURL]),
	}
	if info.BkashQRURL == "" && info.BkashNumber != "" {
		info.BkashQRURL = "/hadiya/qr/" + string(models.PaymentBkash)
	}
	if info.NagadQRURL == "" && info.NagadNumber != "" {
		info.NagadQRURL = "/hadiya/qr/" + string(models.PaymentNagad)
	}
	return info, nil
}

// QRCode resolves the QR image for a wallet.
func (s *HadiyaService) QRCode(ctx context.Context, method models.PaymentMethod) (*QRImage, error) {
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown payment method")
	}
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	numberKey, urlKey := models.SettingBkashNumber, models.SettingBkashQRURL
	if method == models.PaymentNagad {
		numberKey, urlKey = models.SettingNagadNumber, models.SettingNagadQRURL
	}

	if raw := strings.TrimSpace(values[urlKey]); raw != "" {
		if img, ok := s.openStored(ctx, raw); ok {
			return img, nil
		}
		return &QRImage{RedirectURL: raw}, nil
	}

	number := strings.TrimSpace(values[numberKey])
	if number == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no number configured for "+string(method))
	}
	png, err := render.QRCodePNG(number, qrImageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return &QRImage{Data: png, ContentType: "image/png"}, nil
}

func (s *HadiyaService) openStored(ctx context.Context, raw string) (*QRImage, bool) {
	if s.blobs == nil {
		return nil, false
	}
	obj, ok := storage.ObjectFromURL(s.blobs.PublicBase(), raw)
	if !ok {
		return nil, false
	}
	rc, err := s.blobs.Open(ctx, obj.Bucket, obj.Path)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("failed to open qr image", zap.String("path", obj.Path), zap.Error(err))
		}
		return nil, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		s.logger.Warn("failed to read qr image", zap.String("path", obj.Path), zap.Error(err))
		return nil, false
	}
	return &QRImage{Data: data, ContentType: contentTypeFor(obj.Path)}, true
}

func contentTypeFor(objectPath string) string {
	switch {
	case strings.HasSuffix(objectPath, ".png"):
		return "image/png"
	case strings.HasSuffix(objectPath, ".jpg"), strings.HasSuffix(objectPath, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(objectPath, ".gif"):
		return "image/gif"
	case strings.HasSuffix(objectPath, ".pdf"):
		return "application/pdf"
	}
	return "application/octet-stream"
}
