package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eknojore-quran-api/pkg/middleware/requestid"
)

const (
	metaKey      = "eknojore.meta"
	metaStartKey = "eknojore.meta.start"

	MetaCacheHit  = "cache_hit"
	MetaElapsedMS = "processing_time_ms"
	MetaRequestID = "request_id"
)

// WithResponseMeta seeds the per-request meta map returned in the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[MetaRequestID] = id
		}
		c.Set(metaKey, meta)
		c.Set(metaStartKey, time.Now())
		c.Next()
	}
}

// SetMeta stores value under key in the response meta.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaMap(c)[key] = value
}

// SetCacheHit records whether the payload was served from the shared cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the meta collected so far, stamped with the elapsed time.
// It is nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(metaKey)
	if !ok {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(metaStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta[MetaElapsedMS] = time.Since(t).Milliseconds()
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func metaMap(c *gin.Context) map[string]interface{} {
	if raw, ok := c.Get(metaKey); ok {
		if meta, ok := raw.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(metaKey, meta)
	return meta
}
