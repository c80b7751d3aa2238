package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type fakeAccessSrv struct {
	last service.AccessRequest
	res  *models.SurahAccess
	err  error
}

func (f *fakeAccessSrv) Verify(_ context.Context, req service.AccessRequest) (*models.SurahAccess, error) {
	f.last = req
	return f.res, f.err
}

func TestSurahHandlerAccessPassesIdentifierAndClient(t *testing.T) {
	access := &fakeAccessSrv{res: &models.SurahAccess{
		State:      models.AccessVerified,
		Identifier: "QUR-0001",
		PDF:        models.GatedLink{Available: true, URL: "/files/download?token=abc"},
		Exam:       models.GatedLink{Placeholder: service.MsgComingSoon},
	}}
	handler := NewSurahHandler(nil, access)
	c, rec := newTestContext(http.MethodPost, "/api/v1/surahs/96/access", map[string]string{"user_id": "qur-0001"})
	c.Request.RemoteAddr = "10.0.0.7:5000"
	c.Params = gin.Params{{Key: "number", Value: "96"}}

	handler.Access(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 96, access.last.SurahNumber)
	assert.Equal(t, "qur-0001", access.last.Identifier)
	assert.Equal(t, "10.0.0.7", access.last.ClientKey)
	envelope := decodeEnvelope(t, rec)
	pdf := envelope.Data["pdf"].(map[string]interface{})
	assert.Equal(t, true, pdf["available"])
	exam := envelope.Data["exam"].(map[string]interface{})
	assert.Equal(t, service.MsgComingSoon, exam["placeholder"])
}

func TestSurahHandlerAccessBadNumber(t *testing.T) {
	access := &fakeAccessSrv{}
	handler := NewSurahHandler(nil, access)
	c, rec := newTestContext(http.MethodPost, "/api/v1/surahs/abc/access", map[string]string{"user_id": "QUR-0001"})
	c.Params = gin.Params{{Key: "number", Value: "abc"}}

	handler.Access(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, access.last.Identifier)
}

func TestSurahHandlerAccessUnverified(t *testing.T) {
	access := &fakeAccessSrv{err: appErrors.WithDetails(appErrors.ErrUnverifiedIdentifier, service.MsgIdentifierNotFound, map[string]string{"identifier": service.MsgIdentifierNotFound})}
	handler := NewSurahHandler(nil, access)
	c, rec := newTestContext(http.MethodPost, "/api/v1/surahs/96/access", map[string]string{"user_id": "QUR-9999"})
	c.Params = gin.Params{{Key: "number", Value: "96"}}

	handler.Access(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, service.MsgIdentifierNotFound, envelope.Error.Message)
}
