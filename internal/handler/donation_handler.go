package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type donationService interface {
	Create(ctx context.Context, req models.DonationRequest) (*models.Donation, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, *models.Pagination, error)
	Review(ctx context.Context, id string, req models.ReviewRequest, actor *models.JWTClaims) (*models.Donation, error)
}

type whatsAppJoinService interface {
	Join(ctx context.Context, req models.WhatsAppJoinRequest) (*models.WhatsAppJoinResult, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, *models.Pagination, error)
	Review(ctx context.Context, id string, req models.ReviewRequest, actor *models.JWTClaims) error
}

// DonationHandler serves hadiya reports and WhatsApp group join requests.
type DonationHandler struct {
	donations donationService
	joins     whatsAppJoinService
}

// NewDonationHandler constructs a DonationHandler.
func NewDonationHandler(donations donationService, joins whatsAppJoinService) *DonationHandler {
	return &DonationHandler{donations: donations, joins: joins}
}

// Create godoc
// @Summary Report a hadiya payment
// @Tags Hadiya
// @Accept json
// @Produce json
// @Param payload body models.DonationRequest true "Donation"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /donations [post]
func (h *DonationHandler) Create(c *gin.Context) {
	var req models.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid donation payload"))
		return
	}
	donation, err := h.donations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, donation)
}

// List godoc
// @Summary List donations
// @Tags Hadiya
// @Produce json
// @Param status query string false "pending, verified or rejected"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	rows, pagination, err := h.donations.List(c.Request.Context(), reviewFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Review godoc
// @Summary Verify or reject a donation
// @Tags Hadiya
// @Accept json
// @Produce json
// @Param id path string true "Donation ID"
// @Param payload body models.ReviewRequest true "Review"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/donations/{id}/review [post]
func (h *DonationHandler) Review(c *gin.Context) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	donation, err := h.donations.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donation, nil)
}

// Join godoc
// @Summary Request to join the course WhatsApp group
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param payload body models.WhatsAppJoinRequest true "Join request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /whatsapp-joins [post]
func (h *DonationHandler) Join(c *gin.Context) {
	var req models.WhatsAppJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid join payload"))
		return
	}
	result, err := h.joins.Join(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListJoins godoc
// @Summary List WhatsApp join requests
// @Tags WhatsApp
// @Produce json
// @Param status query string false "pending, verified or rejected"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/whatsapp-joins [get]
func (h *DonationHandler) ListJoins(c *gin.Context) {
	rows, pagination, err := h.joins.List(c.Request.Context(), reviewFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// ReviewJoin godoc
// @Summary Verify or reject a WhatsApp join request
// @Tags WhatsApp
// @Accept json
// @Param id path string true "Join ID"
// @Param payload body models.ReviewRequest true "Review"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/whatsapp-joins/{id}/review [post]
func (h *DonationHandler) ReviewJoin(c *gin.Context) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	if err := h.joins.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func reviewFilter(c *gin.Context) models.ReviewFilter {
	page, size := pageQuery(c)
	return models.ReviewFilter{Status: models.ReviewStatus(c.Query("status")), Page: page, PageSize: size}
}
