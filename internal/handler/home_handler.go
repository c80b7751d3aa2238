package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	"github.com/noah-isme/eknojore-quran-api/pkg/render"
	"github.com/noah-isme/eknojore-quran-api/pkg/response"
)

type homepageComposer interface {
	Compose(ctx context.Context) (*models.Homepage, error)
}

type hadiyaService interface {
	Info(ctx context.Context) (*models.HadiyaInfo, error)
	QRCode(ctx context.Context, method models.PaymentMethod) (*service.QRImage, error)
}

// HomeHandler serves the public landing and hadiya pages.
type HomeHandler struct {
	homepage homepageComposer
	hadiya   hadiyaService
}

// NewHomeHandler constructs a HomeHandler.
func NewHomeHandler(homepage homepageComposer, hadiya hadiyaService) *HomeHandler {
	return &HomeHandler{homepage: homepage, hadiya: hadiya}
}

// TemplateFuncs are the helpers available to the public templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown": render.Markdown,
	}
}

// Home godoc
// @Summary Composed homepage
// @Description Ordered homepage sections with their resolved content
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /home [get]
func (h *HomeHandler) Home(c *gin.Context) {
	page, err := h.homepage.Compose(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil, middleware.ExtractMeta(c))
}

// Page renders the homepage as HTML.
func (h *HomeHandler) Page(c *gin.Context) {
	page, err := h.homepage.Compose(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.HTML(http.StatusOK, "home.html", page)
}

// Hadiya godoc
// @Summary Hadiya payment details
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hadiya [get]
func (h *HomeHandler) Hadiya(c *gin.Context) {
	info, err := h.hadiya.Info(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// HadiyaPage renders the payment page as HTML.
func (h *HomeHandler) HadiyaPage(c *gin.Context) {
	info, err := h.hadiya.Info(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.HTML(http.StatusOK, "hadiya.html", info)
}

// HadiyaQR serves the wallet QR image.
func (h *HomeHandler) HadiyaQR(c *gin.Context) {
	img, err := h.hadiya.QRCode(c.Request.Context(), models.PaymentMethod(c.Param("method")))
	if err != nil {
		response.Error(c, err)
		return
	}
	if img.RedirectURL != "" {
		c.Redirect(http.StatusFound, img.RedirectURL)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
