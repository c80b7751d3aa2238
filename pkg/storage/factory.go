package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/pkg/config"
)

// NewBlobStore builds the driver selected by STORAGE_DRIVER.
func NewBlobStore(cfg config.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		return NewLocalBlobStore(cfg.BaseDir, cfg.PublicBaseURL)
	case config.StorageDriverSupabase:
		return NewSupabaseBlobStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.RequestTimeout, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
