package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

type downloadTokenParser interface {
	Parse(token string) (storage.Object, time.Time, error)
}

type blobOpener interface {
	Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error)
}

// FileHandler streams stored objects behind expiring signed tokens.
type FileHandler struct {
	signer downloadTokenParser
	blobs  blobOpener
	logger *zap.Logger
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(signer downloadTokenParser, blobs blobOpener, logger *zap.Logger) *FileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHandler{signer: signer, blobs: blobs, logger: logger}
}

// Download godoc
// @Summary Download a gated file via signed token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	obj, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired"))
		return
	}
	file, err := h.blobs.Open(c.Request.Context(), obj.Bucket, obj.Path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		h.logger.Error("failed to open stored file", zap.String("bucket", obj.Bucket), zap.String("path", obj.Path), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := mime.TypeByExtension(path.Ext(obj.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", path.Base(obj.Path)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, -1, contentType, file, nil)
}
