package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type sectionService interface {
	Layout(ctx context.Context, actor *models.JWTClaims) (*service.SectionDraft, error)
	Move(ctx context.Context, actor *models.JWTClaims, from, to int) (*service.SectionDraft, error)
	Drag(ctx context.Context, actor *models.JWTClaims, events []models.DragEvent) (*service.SectionDraft, error)
	AddCustom(ctx context.Context, actor *models.JWTClaims, meta models.CustomSection) (*models.CustomSection, *service.SectionDraft, error)
	UpdateCustom(ctx context.Context, actor *models.JWTClaims, meta models.CustomSection) (*service.SectionDraft, error)
	RemoveCustom(ctx context.Context, actor *models.JWTClaims, id string) (*service.SectionDraft, error)
	Discard(ctx context.Context, actor *models.JWTClaims) error
	UploadImage(ctx context.Context, actor *models.JWTClaims, id string, r io.Reader, filename string) (*service.SectionDraft, error)
	Save(ctx context.Context, actor *models.JWTClaims) (*service.SectionDraft, error)
}

// SectionHandler edits the homepage layout.
type SectionHandler struct {
	sections sectionService
}

// NewSectionHandler constructs a SectionHandler.
func NewSectionHandler(sections sectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// Layout godoc
// @Summary Current layout draft
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections [get]
func (h *SectionHandler) Layout(c *gin.Context) {
	draft, err := h.sections.Layout(c.Request.Context(), claimsFromContext(c))
	h.respond(c, draft, err)
}

// Move godoc
// @Summary Move a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body map[string]int true "from and to indexes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/move [post]
func (h *SectionHandler) Move(c *gin.Context) {
	var payload struct {
		From *int `json:"from" binding:"required"`
		To   *int `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "from and to are required"))
		return
	}
	draft, err := h.sections.Move(c.Request.Context(), claimsFromContext(c), *payload.From, *payload.To)
	h.respond(c, draft, err)
}

// Drag godoc
// @Summary Replay a drag gesture
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body []models.DragEvent true "Drag events"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/drag [post]
func (h *SectionHandler) Drag(c *gin.Context) {
	var payload struct {
		Events []models.DragEvent `json:"events"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "invalid drag payload"))
		return
	}
	draft, err := h.sections.Drag(c.Request.Context(), claimsFromContext(c), payload.Events)
	h.respond(c, draft, err)
}

// AddCustom godoc
// @Summary Add a custom section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body models.CustomSection true "Section"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/custom [post]
func (h *SectionHandler) AddCustom(c *gin.Context) {
	var req models.CustomSection
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid section payload"))
		return
	}
	section, draft, err := h.sections.AddCustom(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"section": section, "draft": draft}, nil)
}

// UpdateCustom godoc
// @Summary Update a custom section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body models.CustomSection true "Section"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/custom/{id} [put]
func (h *SectionHandler) UpdateCustom(c *gin.Context) {
	var req models.CustomSection
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid section payload"))
		return
	}
	req.ID = c.Param("id")
	draft, err := h.sections.UpdateCustom(c.Request.Context(), claimsFromContext(c), req)
	h.respond(c, draft, err)
}

// RemoveCustom godoc
// @Summary Remove a custom section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/custom/{id} [delete]
func (h *SectionHandler) RemoveCustom(c *gin.Context) {
	draft, err := h.sections.RemoveCustom(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	h.respond(c, draft, err)
}

// UploadImage godoc
// @Summary Upload a custom section image
// @Tags Sections
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Section ID"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/custom/{id}/image [post]
func (h *SectionHandler) UploadImage(c *gin.Context) {
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

	draft, err := h.sections.UploadImage(c.Request.Context(), claimsFromContext(c), c.Param("id"), f, file.Filename)
	h.respond(c, draft, err)
}

// Discard godoc
// @Summary Drop unsaved layout changes
// @Tags Sections
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/draft [delete]
func (h *SectionHandler) Discard(c *gin.Context) {
	if err := h.sections.Discard(c.Request.Context(), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Save godoc
// @Summary Persist the layout draft
// @Tags Sections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/sections/save [post]
func (h *SectionHandler) Save(c *gin.Context) {
	draft, err := h.sections.Save(c.Request.Context(), claimsFromContext(c))
	h.respond(c, draft, err)
}

func (h *SectionHandler) respond(c *gin.Context, draft *service.SectionDraft, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}
