package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error)
	Get(ctx context.Context, userID string) (*service.UserDetail, error)
}

type exportService interface {
	Export(ctx context.Context, kind models.ExportKind, format models.ExportFormat) (*service.ExportFile, error)
}

// UserHandler serves the admin learner directory and exports.
type UserHandler struct {
	users   userService
	exports exportService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users userService, exports exportService) *UserHandler {
	return &UserHandler{users: users, exports: exports}
}

// List godoc
// @Summary List learners
// @Description List learner profiles with pagination and search
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Name, email, phone or user id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	profiles, pagination, err := h.users.List(c.Request.Context(), models.ProfileFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Get godoc
// @Summary Get learner
// @Description Profile plus every submitted answer
// @Tags Users
// @Produce json
// @Param user_id path string true "Learner user id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{user_id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	detail, err := h.users.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Export a dataset
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param kind path string true "users, submissions, whatsapp-joins or donations"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/{kind} [get]
func (h *UserHandler) Export(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", string(models.ExportFormatCSV)))
	file, err := h.exports.Export(c.Request.Context(), models.ExportKind(c.Param("kind")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
