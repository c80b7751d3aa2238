package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type dashboardService interface {
	Learner(ctx context.Context, authUserID string) (*models.LearnerDashboard, error)
	Admin(ctx context.Context) (*models.AdminOverview, bool, error)
	UpdateProfile(ctx context.Context, authUserID string, req models.UpdateProfileRequest) (*models.Profile, error)
}

// DashboardHandler serves learner and admin dashboards.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Learner godoc
// @Summary Learner dashboard
// @Description Profile, course surahs, own answers and progress
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/dashboard [get]
func (h *DashboardHandler) Learner(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dashboard, err := h.service.Learner(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// UpdateProfile godoc
// @Summary Update own name and phone
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/profile [put]
func (h *DashboardHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	profile, err := h.service.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Admin godoc
// @Summary Admin overview counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/overview [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	overview, hit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}
