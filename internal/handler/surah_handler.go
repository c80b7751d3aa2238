package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type surahService interface {
	List(ctx context.Context) ([]models.Surah, error)
	Summaries(ctx context.Context) ([]models.SurahSummary, error)
	Get(ctx context.Context, id string) (*models.Surah, error)
	GetByNumber(ctx context.Context, number int) (*models.SurahSummary, error)
	Create(ctx context.Context, req models.SurahRequest, actor *models.JWTClaims) (*models.Surah, error)
	Update(ctx context.Context, id string, req models.SurahRequest, actor *models.JWTClaims) (*models.Surah, error)
	SetExamLink(ctx context.Context, id string, req models.ExamLinkRequest, actor *models.JWTClaims) (*models.Surah, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	UploadPDF(ctx context.Context, id string, r io.Reader, filename string, actor *models.JWTClaims) (*models.Surah, error)
	RemovePDF(ctx context.Context, id string, actor *models.JWTClaims) (*models.Surah, error)
}

type courseAccessService interface {
	Verify(ctx context.Context, req service.AccessRequest) (*models.SurahAccess, error)
}

// SurahHandler exposes the course surahs.
type SurahHandler struct {
	surahs surahService
	access courseAccessService
}

// NewSurahHandler constructs a SurahHandler.
func NewSurahHandler(surahs surahService, access courseAccessService) *SurahHandler {
	return &SurahHandler{surahs: surahs, access: access}
}

// PublicList godoc
// @Summary List course surahs
// @Tags Surahs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /surahs [get]
func (h *SurahHandler) PublicList(c *gin.Context) {
	surahs, err := h.surahs.Summaries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surahs, nil, middleware.ExtractMeta(c))
}

// PublicGet godoc
// @Summary Get a surah by number
// @Tags Surahs
// @Produce json
// @Param number path int true "Surah number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surahs/{number} [get]
func (h *SurahHandler) PublicGet(c *gin.Context) {
	number, err := intParam(c, "number")
	if err != nil {
		response.Error(c, err)
		return
	}
	surah, err := h.surahs.GetByNumber(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}

// Access godoc
// @Summary Unlock a surah's PDF and exam
// @Description Verifies the learner's User ID and returns gated links
// @Tags Surahs
// @Accept json
// @Produce json
// @Param number path int true "Surah number"
// @Param payload body map[string]string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /surahs/{number}/access [post]
func (h *SurahHandler) Access(c *gin.Context) {
	number, err := intParam(c, "number")
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "invalid access payload"))
		return
	}
	res, err := h.access.Verify(c.Request.Context(), service.AccessRequest{
		SurahNumber: number,
		Identifier:  payload.UserID,
		ClientKey:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// List godoc
// @Summary List surahs with admin fields
// @Tags Admin Surahs
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs [get]
func (h *SurahHandler) List(c *gin.Context) {
	surahs, err := h.surahs.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surahs, nil)
}

// Get godoc
// @Summary Get a surah
// @Tags Admin Surahs
// @Produce json
// @Param id path string true "Surah ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id} [get]
func (h *SurahHandler) Get(c *gin.Context) {
	surah, err := h.surahs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}

// Create godoc
// @Summary Create a surah
// @Tags Admin Surahs
// @Accept json
// @Produce json
// @Param payload body models.SurahRequest true "Surah payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs [post]
func (h *SurahHandler) Create(c *gin.Context) {
	var req models.SurahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid surah payload"))
		return
	}
	surah, err := h.surahs.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, surah)
}

// Update godoc
// @Summary Update a surah
// @Tags Admin Surahs
// @Accept json
// @Produce json
// @Param id path string true "Surah ID"
// @Param payload body models.SurahRequest true "Surah payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id} [put]
func (h *SurahHandler) Update(c *gin.Context) {
	var req models.SurahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid surah payload"))
		return
	}
	surah, err := h.surahs.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}

// SetExamLink godoc
// @Summary Set or clear the surah exam link
// @Tags Admin Surahs
// @Accept json
// @Produce json
// @Param id path string true "Surah ID"
// @Param payload body models.ExamLinkRequest true "Exam link"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id}/exam-link [put]
func (h *SurahHandler) SetExamLink(c *gin.Context) {
	var req models.ExamLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid exam link payload"))
		return
	}
	surah, err := h.surahs.SetExamLink(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}

// Delete godoc
// @Summary Delete a surah
// @Tags Admin Surahs
// @Param id path string true "Surah ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id} [delete]
func (h *SurahHandler) Delete(c *gin.Context) {
	if err := h.surahs.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadPDF godoc
// @Summary Upload the surah PDF
// @Tags Admin Surahs
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Surah ID"
// @Param file formData file true "PDF file"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id}/pdf [post]
func (h *SurahHandler) UploadPDF(c *gin.Context) {
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

	surah, err := h.surahs.UploadPDF(c.Request.Context(), c.Param("id"), f, file.Filename, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}

// RemovePDF godoc
// @Summary Remove the surah PDF
// @Tags Admin Surahs
// @Produce json
// @Param id path string true "Surah ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/surahs/{id}/pdf [delete]
func (h *SurahHandler) RemovePDF(c *gin.Context) {
	surah, err := h.surahs.RemovePDF(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surah, nil)
}
