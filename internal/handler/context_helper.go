package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// pageQuery reads page and page_size, ignoring malformed values.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return page, size
}

func intParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, appErrors.WithDetails(appErrors.ErrValidation, "invalid path parameter", map[string]string{name: "must be a number"})
	}
	return n, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
