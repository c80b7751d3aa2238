package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

type settingsReader interface {
	Map(ctx context.Context) (map[string]string, error)
}

type settingsWriter interface {
	settingsReader
	Save(ctx context.Context, entries []models.Setting, actor *models.JWTClaims) error
}

type blobUploader interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string, upsert bool) error
	PublicURL(bucket, objectPath string) string
}

// SectionDraft is an admin's working copy of the homepage layout.
type SectionDraft struct {
	Layout models.SectionLayout      `json:"layout"`
	Labels []models.SectionLabelView `json:"labels"`
	Dirty  bool                      `json:"dirty"`
}

// SectionServiceConfig tunes image handling.
type SectionServiceConfig struct {
	ImageMaxWidth int
}

// SectionService edits the homepage section order and custom sections. Each admin
// works on a private draft that is re-seeded whenever the stored values change and
// persisted only by Save.
type SectionService struct {
	settings  settingsWriter
	blobs     blobUploader
	cleanup   *BlobCleanupService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SectionServiceConfig
	now       func() time.Time

	mu     sync.Mutex
	drafts map[string]*sectionDraft
}

type sectionDraft struct {
	editor models.SectionEditor
	dirty  bool
}

// NewSectionService constructs a SectionService.
func NewSectionService(settings settingsWriter, blobs blobUploader, cleanup *BlobCleanupService, validate *validator.Validate, logger *zap.Logger, cfg SectionServiceConfig) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		settings:  settings,
		blobs:     blobs,
		cleanup:   cleanup,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		drafts:    make(map[string]*sectionDraft),
	}
}

// Layout returns the admin's draft, re-seeded from storage when the stored values moved.
func (s *SectionService) Layout(ctx context.Context, actor *models.JWTClaims) (*SectionDraft, error) {
	return s.edit(ctx, actor, func(*models.SectionLayout) error { return nil })
}

// Move repositions the key at from to index to.
func (s *SectionService) Move(ctx context.Context, actor *models.JWTClaims, from, to int) (*SectionDraft, error) {
	return s.edit(ctx, actor, func(l *models.SectionLayout) error {
		return l.Move(from, to)
	})
}

// Drag replays a recorded drag gesture against the draft.
func (s *SectionService) Drag(ctx context.Context, actor *models.JWTClaims, events []models.DragEvent) (*SectionDraft, error) {
	for _, ev := range events {
		if err := s.validator.Struct(ev); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drag event")
		}
	}
	return s.edit(ctx, actor, func(l *models.SectionLayout) error {
		var session models.DragSession
		_, err := session.Replay(l, events)
		return err
	})
}

// AddCustom appends a custom section to the draft.
func (s *SectionService) AddCustom(ctx context.Context, actor *models.JWTClaims, meta models.CustomSection) (*models.CustomSection, *SectionDraft, error) {
	var added models.CustomSection
	draft, err := s.edit(ctx, actor, func(l *models.SectionLayout) error {
		var err error
		added, err = l.AddCustom(meta, s.now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &added, draft, nil
}

// UpdateCustom replaces a custom section in the draft.
func (s *SectionService) UpdateCustom(ctx context.Context, actor *models.JWTClaims, meta models.CustomSection) (*SectionDraft, error) {
	return s.edit(ctx, actor, func(l *models.SectionLayout) error {
		return l.UpdateCustom(meta)
	})
}

// RemoveCustom drops a custom section from the draft.
func (s *SectionService) RemoveCustom(ctx context.Context, actor *models.JWTClaims, id string) (*SectionDraft, error) {
	return s.edit(ctx, actor, func(l *models.SectionLayout) error {
		_, err := l.RemoveCustom(id)
		return err
	})
}

// Discard throws the draft away; the next read re-seeds it from storage. Images
// uploaded for the draft only are scheduled for removal.
func (s *SectionService) Discard(ctx context.Context, actor *models.JWTClaims) error {
	values, err := s.settings.Map(ctx)
	if err != nil {
		return err
	}
	stored := models.ParseSectionLayout(values[models.SettingSectionOrder], values[models.SettingCustomSections])

	s.mu.Lock()
	d, ok := s.drafts[draftKey(actor)]
	delete(s.drafts, draftKey(actor))
	s.mu.Unlock()
	if ok {
		s.cleanup.ScheduleURLs(orphanedImages(d.editor.Layout, stored)...)
	}
	return nil
}

// UploadImage stores an image for a custom section and points the draft at it.
func (s *SectionService) UploadImage(ctx context.Context, actor *models.JWTClaims, id string, r io.Reader, filename string) (*SectionDraft, error) {
	if models.IsBuiltinSection(id) {
		return nil, mapLayoutError(models.ErrBuiltinSection)
	}
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	current, exists := s.draftLocked(actor, values).editor.Layout.Custom(id)
	s.mu.Unlock()
	if !exists {
		return nil, mapLayoutError(models.ErrSectionNotFound)
	}

	img, err := storage.PrepareImage(r, filename, s.cfg.ImageMaxWidth)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedMediaType.Code, appErrors.ErrUnsupportedMediaType.Status, "unsupported image")
	}
	objectPath := id + "." + img.Ext
	if err := s.blobs.Upload(ctx, storage.BucketSectionImages, objectPath, bytes.NewReader(img.Data), img.ContentType, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload section image")
	}
	url := s.blobs.PublicURL(storage.BucketSectionImages, objectPath)

	draft, err := s.edit(ctx, actor, func(l *models.SectionLayout) error {
		section, ok := l.Custom(id)
		if !ok {
			return models.ErrSectionNotFound
		}
		section.ImageURL = url
		return l.UpdateCustom(section)
	})
	if err != nil {
		return nil, err
	}

	// A replaced draft-only image is unreachable once the new one is in place.
	if current.ImageURL != url {
		replaced := models.SectionLayout{Customs: []models.CustomSection{current}}
		stored := models.ParseSectionLayout(values[models.SettingSectionOrder], values[models.SettingCustomSections])
		s.cleanup.ScheduleURLs(orphanedImages(replaced, stored)...)
	}
	return draft, nil
}

// Save validates the draft and writes section_order then custom_sections. The writes
// are independent; on partial failure the error names the key that failed.
func (s *SectionService) Save(ctx context.Context, actor *models.JWTClaims) (*SectionDraft, error) {
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, err
	}
	stored := models.ParseSectionLayout(values[models.SettingSectionOrder], values[models.SettingCustomSections])

	s.mu.Lock()
	d := s.draftLocked(actor, values)
	layout := d.editor.Layout.Clone()
	s.mu.Unlock()

	if err := layout.Validate(); err != nil {
		return nil, mapLayoutError(err)
	}
	order, customs, err := layout.Encode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode layout")
	}

	saveErr := s.settings.Save(ctx, []models.Setting{
		{Key: models.SettingSectionOrder, Value: order},
		{Key: models.SettingCustomSections, Value: customs},
	}, actor)
	if saveErr != nil {
		written := WrittenSettingKeys(saveErr)
		s.logger.Warn("section layout save incomplete", zap.Strings("written", written), zap.Error(saveErr))
		if len(written) > 0 {
			s.keepDraftAfterPartialSave(actor, values, written, order, customs)
		}
		return nil, saveErr
	}

	s.cleanup.ScheduleURLs(orphanedImages(stored, layout)...)

	s.mu.Lock()
	d = s.draftLocked(actor, nil)
	d.editor.Sync(order, customs)
	d.dirty = false
	draft := snapshot(d)
	s.mu.Unlock()
	return draft, nil
}

// keepDraftAfterPartialSave points the draft's baseline at the strings now in storage
// so the next read does not re-seed over the unsaved edits.
func (s *SectionService) keepDraftAfterPartialSave(actor *models.JWTClaims, values map[string]string, written []string, order, customs string) {
	baseOrder := values[models.SettingSectionOrder]
	baseCustoms := values[models.SettingCustomSections]
	for _, key := range written {
		switch key {
		case models.SettingSectionOrder:
			baseOrder = order
		case models.SettingCustomSections:
			baseCustoms = customs
		}
	}
	s.mu.Lock()
	d := s.draftLocked(actor, nil)
	d.editor.Rebase(baseOrder, baseCustoms)
	d.dirty = true
	s.mu.Unlock()
}

func (s *SectionService) edit(ctx context.Context, actor *models.JWTClaims, fn func(*models.SectionLayout) error) (*SectionDraft, error) {
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draftLocked(actor, values)

	working := d.editor.Layout.Clone()
	if err := fn(&working); err != nil {
		return nil, mapLayoutError(err)
	}
	if !sameLayout(working, d.editor.Layout) {
		d.editor.Layout = working
		d.dirty = true
	}
	return snapshot(d), nil
}

// draftLocked returns the actor's draft, syncing it with values when they are given.
func (s *SectionService) draftLocked(actor *models.JWTClaims, values map[string]string) *sectionDraft {
	key := draftKey(actor)
	d, ok := s.drafts[key]
	if !ok {
		d = &sectionDraft{}
		s.drafts[key] = d
	}
	if values != nil && d.editor.Sync(values[models.SettingSectionOrder], values[models.SettingCustomSections]) {
		d.dirty = false
	}
	return d
}

func snapshot(d *sectionDraft) *SectionDraft {
	layout := d.editor.Layout.Clone()
	return &SectionDraft{Layout: layout, Labels: layout.Labels(), Dirty: d.dirty}
}

func draftKey(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

func sameLayout(a, b models.SectionLayout) bool {
	if len(a.Order) != len(b.Order) || len(a.Customs) != len(b.Customs) {
		return false
	}
	for i := range a.Order {
		if a.Order[i] != b.Order[i] {
			return false
		}
	}
	for i := range a.Customs {
		if a.Customs[i] != b.Customs[i] {
			return false
		}
	}
	return true
}

// orphanedImages lists image URLs referenced by before but not by after.
func orphanedImages(before, after models.SectionLayout) []string {
	kept := make(map[string]bool, len(after.Customs))
	for _, c := range after.Customs {
		if c.ImageURL != "" {
			kept[c.ImageURL] = true
		}
	}
	var out []string
	for _, c := range before.Customs {
		if c.ImageURL != "" && !kept[c.ImageURL] {
			out = append(out, c.ImageURL)
		}
	}
	return out
}

func mapLayoutError(err error) error {
	var layoutErr *models.LayoutError
	switch {
	case errors.As(err, &layoutErr):
		details := map[string]string{"reason": layoutErr.Reason}
		if layoutErr.Key != "" {
			details["key"] = layoutErr.Key
		}
		return appErrors.WithDetails(appErrors.ErrValidation, "invalid section layout", details)
	case errors.Is(err, models.ErrSectionTitleRequired):
		return appErrors.WithDetails(appErrors.ErrValidation, "invalid custom section", map[string]string{"title": "শিরোনাম আবশ্যক"})
	case errors.Is(err, models.ErrSectionLink):
		return appErrors.WithDetails(appErrors.ErrValidation, "invalid custom section", map[string]string{"buttonLink": err.Error()})
	case errors.Is(err, models.ErrSectionIndex):
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	case errors.Is(err, models.ErrBuiltinSection):
		return appErrors.Clone(appErrors.ErrForbidden, err.Error())
	case errors.Is(err, models.ErrSectionNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, err.Error())
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section edit")
}
