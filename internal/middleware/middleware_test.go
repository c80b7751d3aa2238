package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/middleware/requestid"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type auditRecorder struct {
	logs []models.AuditLog
	err  error
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return a.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/exports/:kind", handlers...)
	return r
}

func perform(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/exports/users?format=csv", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleLearner}}))

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, perform(r, "bearer good").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	var seen *models.JWTClaims
	capture := func(c *gin.Context) {
		if v, ok := c.Get(ContextUserKey); ok {
			seen = v.(*models.JWTClaims)
		}
	}
	claims := &models.JWTClaims{UserID: "u1"}
	r := newRouter(OptionalJWT(validatorStub{claims: claims}), capture)

	assert.Equal(t, http.StatusOK, perform(r, "Bearer bad").Code)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, perform(r, "Bearer good").Code)
	assert.Same(t, claims, seen)
}

func TestRequireRoles(t *testing.T) {
	learner := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleLearner}}), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, perform(learner, "Bearer good").Code)

	admin := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u2", Role: models.RoleAdmin}}), RequireRoles(models.RoleLearner))
	assert.Equal(t, http.StatusOK, perform(admin, "Bearer good").Code)

	anonymous := newRouter(RequireRoles(models.RoleLearner))
	assert.Equal(t, http.StatusUnauthorized, perform(anonymous, "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &auditRecorder{err: errors.New("db down")}
	r := newRouter(
		JWT(validatorStub{claims: &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}}),
		Audit(recorder, nil, models.AuditActionDataExport, "export"),
	)

	require.Equal(t, http.StatusOK, perform(r, "Bearer good").Code)
	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionDataExport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "users", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "format=csv")

	perform(r, "Bearer bad")
	assert.Len(t, recorder.logs, 1)
}

func TestResponseMetaCarriesRequestIDAndElapsed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.HeaderKey, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, meta)
	assert.Equal(t, "req-1", meta[MetaRequestID])
	assert.Equal(t, true, meta[MetaCacheHit])
	assert.Contains(t, meta, MetaElapsedMS)
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetMeta(c, "definitions", 3)
	assert.Equal(t, map[string]interface{}{"definitions": 3}, ExtractMeta(c))
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/surahs/:number", ok)
	r.GET("/metrics", ok)

	for _, path := range []string{"/surahs/1", "/surahs/2", "/wp-login.php", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					counts[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"/surahs/:number": 2, unmatchedRoute: 1}, counts)
}
