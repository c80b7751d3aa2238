package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type fakeSectionSrv struct {
	draft     *service.SectionDraft
	added     *models.CustomSection
	err       error
	moved     [2]int
	events    []models.DragEvent
	meta      models.CustomSection
	removedID string
	discarded string
	saved     int
}

func (f *fakeSectionSrv) Layout(context.Context, *models.JWTClaims) (*service.SectionDraft, error) {
	return f.draft, f.err
}

func (f *fakeSectionSrv) Move(_ context.Context, _ *models.JWTClaims, from, to int) (*service.SectionDraft, error) {
	f.moved = [2]int{from, to}
	return f.draft, f.err
}

func (f *fakeSectionSrv) Drag(_ context.Context, _ *models.JWTClaims, events []models.DragEvent) (*service.SectionDraft, error) {
	f.events = events
	return f.draft, f.err
}

func (f *fakeSectionSrv) AddCustom(_ context.Context, _ *models.JWTClaims, meta models.CustomSection) (*models.CustomSection, *service.SectionDraft, error) {
	f.meta = meta
	return f.added, f.draft, f.err
}

func (f *fakeSectionSrv) UpdateCustom(_ context.Context, _ *models.JWTClaims, meta models.CustomSection) (*service.SectionDraft, error) {
	f.meta = meta
	return f.draft, f.err
}

func (f *fakeSectionSrv) RemoveCustom(_ context.Context, _ *models.JWTClaims, id string) (*service.SectionDraft, error) {
	f.removedID = id
	return f.draft, f.err
}

func (f *fakeSectionSrv) Discard(_ context.Context, actor *models.JWTClaims) error {
	if actor != nil {
		f.discarded = actor.UserID
	}
	return f.err
}

func (f *fakeSectionSrv) UploadImage(context.Context, *models.JWTClaims, string, io.Reader, string) (*service.SectionDraft, error) {
	return f.draft, f.err
}

func (f *fakeSectionSrv) Save(context.Context, *models.JWTClaims) (*service.SectionDraft, error) {
	f.saved++
	return f.draft, f.err
}

func sampleDraft() *service.SectionDraft {
	layout := models.NewSectionLayout([]string{"hero", "cta"}, nil)
	return &service.SectionDraft{Layout: layout, Labels: layout.Labels(), Dirty: true}
}

func TestSectionMoveRequiresBothIndexes(t *testing.T) {
	srv := &fakeSectionSrv{draft: sampleDraft()}
	h := NewSectionHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/admin/sections/move", map[string]int{"from": 1})
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Move(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/admin/sections/move", map[string]int{"from": 0, "to": 1})
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Move(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{0, 1}, srv.moved)
	assert.Equal(t, true, decodeEnvelope(t, rec).Data["dirty"])
}

func TestSectionDragPassesEvents(t *testing.T) {
	srv := &fakeSectionSrv{draft: sampleDraft()}
	h := NewSectionHandler(srv)

	body := gin.H{"events": []models.DragEvent{{Type: models.DragStart, Index: 0}, {Type: models.DragEnd}}}
	c, rec := newTestContext(http.MethodPost, "/admin/sections/drag", body)
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Drag(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.events, 2)
	assert.Equal(t, models.DragStart, srv.events[0].Type)
}

func TestSectionAddCustomReturnsCreated(t *testing.T) {
	srv := &fakeSectionSrv{draft: sampleDraft(), added: &models.CustomSection{ID: "custom_1", Title: "ঘোষণা"}}
	h := NewSectionHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/admin/sections/custom", models.CustomSection{Title: "ঘোষণা"})
	c.Set(middleware.ContextUserKey, adminClaims)
	h.AddCustom(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	section, ok := decodeEnvelope(t, rec).Data["section"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "custom_1", section["id"])
	assert.Equal(t, "ঘোষণা", srv.meta.Title)
}

func TestSectionUpdateCustomTakesIDFromPath(t *testing.T) {
	srv := &fakeSectionSrv{err: appErrors.Clone(appErrors.ErrForbidden, "builtin sections cannot be edited")}
	h := NewSectionHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/admin/sections/custom/hero", models.CustomSection{ID: "ignored", Title: "x"})
	c.Params = gin.Params{{Key: "id", Value: "hero"}}
	c.Set(middleware.ContextUserKey, adminClaims)
	h.UpdateCustom(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "hero", srv.meta.ID)
}

func TestSectionRemoveCustomMapsNotFound(t *testing.T) {
	srv := &fakeSectionSrv{err: appErrors.Clone(appErrors.ErrNotFound, "custom section not found")}
	h := NewSectionHandler(srv)

	c, rec := newTestContext(http.MethodDelete, "/admin/sections/custom/custom_9", nil)
	c.Params = gin.Params{{Key: "id", Value: "custom_9"}}
	c.Set(middleware.ContextUserKey, adminClaims)
	h.RemoveCustom(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "custom_9", srv.removedID)
}

func TestSectionDiscardReturnsNoContent(t *testing.T) {
	srv := &fakeSectionSrv{}
	h := NewSectionHandler(srv)

	c, _ := newTestContext(http.MethodDelete, "/admin/sections/draft", nil)
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Discard(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "auth-admin", srv.discarded)

	srv.err = appErrors.ErrInternal
	c, rec := newTestContext(http.MethodDelete, "/admin/sections/draft", nil)
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Discard(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSectionUploadImageRequiresFile(t *testing.T) {
	h := NewSectionHandler(&fakeSectionSrv{draft: sampleDraft()})

	c, rec := newTestContext(http.MethodPost, "/admin/sections/custom/custom_1/image", nil)
	c.Params = gin.Params{{Key: "id", Value: "custom_1"}}
	c.Set(middleware.ContextUserKey, adminClaims)
	h.UploadImage(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSectionSaveSurfacesPartialFailure(t *testing.T) {
	saveErr := appErrors.WithDetails(appErrors.ErrInternal, "failed to save setting custom_sections", map[string]string{
		"failed_key":   models.SettingCustomSections,
		"written_keys": models.SettingSectionOrder,
	})
	srv := &fakeSectionSrv{err: saveErr}
	h := NewSectionHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/admin/sections/save", nil)
	c.Set(middleware.ContextUserKey, adminClaims)
	h.Save(c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, models.SettingCustomSections, envelope.Error.Details["failed_key"])
	assert.Equal(t, 1, srv.saved)
}
