package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type settingsService interface {
	Definitions() []models.SettingDefinition
	List(ctx context.Context) ([]models.SettingItem, error)
	Item(ctx context.Context, key string) (*models.SettingItem, error)
	Update(ctx context.Context, req models.UpdateSettingsRequest, actor *models.JWTClaims) ([]models.SettingItem, error)
}

type mediaService interface {
	UploadSettingImage(ctx context.Context, key string, r io.Reader, filename string, actor *models.JWTClaims) (*models.Setting, error)
}

// SettingsHandler exposes the admin site settings.
type SettingsHandler struct {
	settings settingsService
	media    mediaService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(settings settingsService, media mediaService) *SettingsHandler {
	return &SettingsHandler{settings: settings, media: media}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	items, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "definitions", h.settings.Definitions())
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get setting by key
// @Tags Settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings/{key} [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	item, err := h.settings.Item(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update settings
// @Description Writes every given key; a failure reports which keys were already written
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid settings payload"))
		return
	}
	items, err := h.settings.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Upload godoc
// @Summary Upload a settings image
// @Description Stores logo, hero banner or wallet QR images and points the setting at them
// @Tags Settings
// @Accept multipart/form-data
// @Produce json
// @Param bucket path string true "Bucket (logos)"
// @Param key formData string true "Setting key"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/uploads/{bucket} [post]
func (h *SettingsHandler) Upload(c *gin.Context) {
	if c.Param("bucket") != "logos" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown bucket"))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, bindError(err, "failed to read upload"))
		return
	}
	defer f.Close()

	setting, err := h.media.UploadSettingImage(c.Request.Context(), c.PostForm("key"), f, file.Filename, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
