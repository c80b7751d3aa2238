package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/jobs"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

type settingsStoreStub struct {
	values map[string]string
	saved  [][]models.Setting
	failOn string
}

func (s *settingsStoreStub) Map(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *settingsStoreStub) Save(ctx context.Context, entries []models.Setting, actor *models.JWTClaims) error {
	s.saved = append(s.saved, entries)
	var written []string
	for _, e := range entries {
		if e.Key == s.failOn {
			details := map[string]string{"failed_key": e.Key}
			if len(written) > 0 {
				details["written_keys"] = strings.Join(written, ",")
			}
			return appErrors.WithDetails(appErrors.ErrInternal, "failed to save setting "+e.Key, details)
		}
		s.values[e.Key] = e.Value
		written = append(written, e.Key)
	}
	return nil
}

type blobStoreStub struct {
	uploads map[string][]byte
	removed []string
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{uploads: map[string][]byte{}}
}

func (b *blobStoreStub) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string, upsert bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.uploads[bucket+"/"+objectPath] = data
	return nil
}

func (b *blobStoreStub) Remove(ctx context.Context, bucket string, objectPaths ...string) error {
	for _, p := range objectPaths {
		b.removed = append(b.removed, bucket+"/"+p)
	}
	return nil
}

func (b *blobStoreStub) Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	data, ok := b.uploads[bucket+"/"+objectPath]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *blobStoreStub) PublicURL(bucket, objectPath string) string {
	return "https://cdn.example/" + bucket + "/" + objectPath
}

func (b *blobStoreStub) PublicBase() string {
	return "https://cdn.example"
}

type enqueueStub struct {
	jobs []jobs.Job
}

func (e *enqueueStub) Enqueue(job jobs.Job) error {
	e.jobs = append(e.jobs, job)
	return nil
}

var sectionAdmin = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func newTestSectionService(values map[string]string) (*SectionService, *settingsStoreStub, *blobStoreStub, *enqueueStub) {
	settings := &settingsStoreStub{values: values}
	blobs := newBlobStoreStub()
	queue := &enqueueStub{}
	cleanup := NewBlobCleanupService(queue, blobs, nil, nil)
	svc := NewSectionService(settings, blobs, cleanup, nil, nil, SectionServiceConfig{ImageMaxWidth: 8})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, settings, blobs, queue
}

func TestSectionLayoutSeedsFromDefaults(t *testing.T) {
	svc, _, _, _ := newTestSectionService(map[string]string{})

	draft, err := svc.Layout(context.Background(), sectionAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSectionOrder(), draft.Layout.Order)
	assert.False(t, draft.Dirty)
	require.Len(t, draft.Labels, len(models.DefaultSectionOrder()))
}

func TestSectionMoveAndSaveWritesBothKeysInOrder(t *testing.T) {
	svc, settings, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder: `["hero","features","cta"]`,
	})

	draft, err := svc.Move(context.Background(), sectionAdmin, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"cta", "hero", "features"}, draft.Layout.Order)
	assert.True(t, draft.Dirty)

	saved, err := svc.Save(context.Background(), sectionAdmin)
	require.NoError(t, err)
	assert.False(t, saved.Dirty)
	require.Len(t, settings.saved, 1)
	require.Len(t, settings.saved[0], 2)
	assert.Equal(t, models.SettingSectionOrder, settings.saved[0][0].Key)
	assert.Equal(t, `["cta","hero","features"]`, settings.saved[0][0].Value)
	assert.Equal(t, models.SettingCustomSections, settings.saved[0][1].Key)
	assert.Equal(t, `[]`, settings.saved[0][1].Value)
}

func TestSectionDraftReseedsWhenStoredValueChanges(t *testing.T) {
	svc, settings, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder: `["hero","cta"]`,
	})

	_, err := svc.Move(context.Background(), sectionAdmin, 0, 1)
	require.NoError(t, err)

	settings.values[models.SettingSectionOrder] = `["whatsapp","hero"]`
	draft, err := svc.Layout(context.Background(), sectionAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"whatsapp", "hero"}, draft.Layout.Order)
	assert.False(t, draft.Dirty)
}

func TestSectionDraftsArePerAdmin(t *testing.T) {
	svc, _, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder: `["hero","cta"]`,
	})

	_, err := svc.Move(context.Background(), sectionAdmin, 0, 1)
	require.NoError(t, err)

	other, err := svc.Layout(context.Background(), &models.JWTClaims{UserID: "admin-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero", "cta"}, other.Layout.Order)
}

func TestSectionDragReplaysGesture(t *testing.T) {
	svc, _, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder: `["hero","features","course"]`,
	})

	draft, err := svc.Drag(context.Background(), sectionAdmin, []models.DragEvent{
		{Type: models.DragStart, Index: 0},
		{Type: models.DragEnter, Index: 1},
		{Type: models.DragEnter, Index: 2},
		{Type: models.DragEnd},
		{Type: models.DragEnd},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"features", "course", "hero"}, draft.Layout.Order)

	_, err = svc.Drag(context.Background(), sectionAdmin, []models.DragEvent{{Type: "drop"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSectionAddUpdateRemoveCustom(t *testing.T) {
	svc, _, _, _ := newTestSectionService(map[string]string{})

	added, draft, err := svc.AddCustom(context.Background(), sectionAdmin, models.CustomSection{Title: "  ঘোষণা  ", ButtonText: "দেখুন", ButtonLink: "/hadiya"})
	require.NoError(t, err)
	assert.Equal(t, "custom_1700000000000", added.ID)
	assert.Equal(t, "ঘোষণা", added.Title)
	assert.Equal(t, added.ID, draft.Layout.Order[len(draft.Layout.Order)-1])

	updated := *added
	updated.Title = "নতুন ঘোষণা"
	draft, err = svc.UpdateCustom(context.Background(), sectionAdmin, updated)
	require.NoError(t, err)
	assert.Equal(t, "নতুন ঘোষণা", draft.Labels[len(draft.Labels)-1].Label)

	_, err = svc.UpdateCustom(context.Background(), sectionAdmin, models.CustomSection{ID: "hero", Title: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, _, err = svc.AddCustom(context.Background(), sectionAdmin, models.CustomSection{Title: " "})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Details, "title")

	draft, err = svc.RemoveCustom(context.Background(), sectionAdmin, added.ID)
	require.NoError(t, err)
	assert.Empty(t, draft.Layout.Customs)
	assert.NotContains(t, draft.Layout.Order, added.ID)

	_, err = svc.RemoveCustom(context.Background(), sectionAdmin, "custom_missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSectionSaveRejectsInvalidLayout(t *testing.T) {
	svc, settings, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder:   `["hero","custom_1"]`,
		models.SettingCustomSections: `[]`,
	})

	_, err := svc.Save(context.Background(), sectionAdmin)
	require.Error(t, err)
	assert.Equal(t, "custom_1", appErrors.FromError(err).Details["key"])
	assert.Empty(t, settings.saved)
}

func TestSectionSaveReportsPartialFailure(t *testing.T) {
	svc, settings, _, _ := newTestSectionService(map[string]string{})
	settings.failOn = models.SettingCustomSections

	_, err := svc.Move(context.Background(), sectionAdmin, 0, 1)
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), sectionAdmin)
	require.Error(t, err)
	assert.Contains(t, settings.values, models.SettingSectionOrder)
	assert.NotContains(t, settings.values, models.SettingCustomSections)
}

func TestSectionSaveKeepsDraftAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	svc, settings, _, _ := newTestSectionService(map[string]string{})
	settings.failOn = models.SettingCustomSections

	added, _, err := svc.AddCustom(ctx, sectionAdmin, models.CustomSection{Title: "ঘোষণা"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, sectionAdmin)
	require.Error(t, err)
	assert.Contains(t, settings.values[models.SettingSectionOrder], added.ID)

	draft, err := svc.Layout(ctx, sectionAdmin)
	require.NoError(t, err)
	assert.True(t, draft.Dirty)
	require.Len(t, draft.Layout.Customs, 1)
	assert.Equal(t, added.ID, draft.Layout.Customs[0].ID)

	settings.failOn = ""
	saved, err := svc.Save(ctx, sectionAdmin)
	require.NoError(t, err)
	assert.False(t, saved.Dirty)
	assert.Contains(t, settings.values[models.SettingCustomSections], added.ID)
}

func TestSectionRemoveCustomClearsKeyWithoutRecord(t *testing.T) {
	ctx := context.Background()
	svc, settings, _, _ := newTestSectionService(map[string]string{
		models.SettingSectionOrder:   `["hero","custom_1717"]`,
		models.SettingCustomSections: `[]`,
	})

	draft, err := svc.RemoveCustom(ctx, sectionAdmin, "custom_1717")
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, draft.Layout.Order)
	assert.True(t, draft.Dirty)

	_, err = svc.Save(ctx, sectionAdmin)
	require.NoError(t, err)
	assert.Equal(t, `["hero"]`, settings.values[models.SettingSectionOrder])
}

func TestSectionDiscardSchedulesDraftOnlyImages(t *testing.T) {
	ctx := context.Background()
	svc, _, _, queue := newTestSectionService(map[string]string{
		models.SettingSectionOrder:   `["hero","custom_1"]`,
		models.SettingCustomSections: `[{"id":"custom_1","title":"A","imageUrl":"https://cdn.example/section-images/custom_1.jpg"}]`,
	})

	_, err := svc.UploadImage(ctx, sectionAdmin, "custom_1", bytes.NewReader(testPNG(t, 4, 4)), "banner.png")
	require.NoError(t, err)
	require.Empty(t, queue.jobs)

	require.NoError(t, svc.Discard(ctx, sectionAdmin))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, storage.Object{Bucket: "section-images", Path: "custom_1.png"}, queue.jobs[0].Payload)

	draft, err := svc.Layout(ctx, sectionAdmin)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/section-images/custom_1.jpg", draft.Layout.Customs[0].ImageURL)

	require.NoError(t, svc.Discard(ctx, &models.JWTClaims{UserID: "admin-2"}))
	assert.Len(t, queue.jobs, 1)
}

func TestSectionUploadImageSchedulesReplacedDraftImage(t *testing.T) {
	ctx := context.Background()
	svc, _, _, queue := newTestSectionService(map[string]string{})

	added, _, err := svc.AddCustom(ctx, sectionAdmin, models.CustomSection{Title: "A"})
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, sectionAdmin, added.ID, bytes.NewReader(testPNG(t, 4, 4)), "a.png")
	require.NoError(t, err)
	require.Empty(t, queue.jobs)

	draft, err := svc.UploadImage(ctx, sectionAdmin, added.ID, bytes.NewReader(testPNG(t, 4, 4)), "b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/section-images/"+added.ID+".jpg", draft.Layout.Customs[0].ImageURL)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, storage.Object{Bucket: "section-images", Path: added.ID + ".png"}, queue.jobs[0].Payload)
}

func TestSectionUploadImageAndCleanupOnSave(t *testing.T) {
	svc, _, blobs, queue := newTestSectionService(map[string]string{
		models.SettingSectionOrder:   `["hero","custom_1"]`,
		models.SettingCustomSections: `[{"id":"custom_1","title":"A","imageUrl":"https://cdn.example/section-images/custom_1.jpg"}]`,
	})

	draft, err := svc.UploadImage(context.Background(), sectionAdmin, "custom_1", bytes.NewReader(testPNG(t, 16, 4)), "banner.png")
	require.NoError(t, err)
	require.Contains(t, blobs.uploads, "section-images/custom_1.png")
	assert.Equal(t, "https://cdn.example/section-images/custom_1.png", draft.Layout.Customs[0].ImageURL)

	_, err = svc.Save(context.Background(), sectionAdmin)
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeBlobRemove, queue.jobs[0].Type)
	assert.Equal(t, storage.Object{Bucket: "section-images", Path: "custom_1.jpg"}, queue.jobs[0].Payload)

	_, err = svc.UploadImage(context.Background(), sectionAdmin, "hero", bytes.NewReader(testPNG(t, 2, 2)), "x.png")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 60, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}
