package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/internal/service"
)

// unmatchedRoute labels requests no route matched, so scanners cannot blow up
// the path label cardinality.
const unmatchedRoute = "unmatched"

// Metrics observes every request except the scrape endpoint itself.
func Metrics(metrics *service.MetricsService, scrapePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || c.Request.URL.Path == scrapePath {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
