package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type settingRepoStub struct {
	items     map[string]string
	allCalls  int
	updates   []string
	inserts   []string
	failOn    string
	allErr    error
	updateErr error
}

func newSettingRepoStub(items map[string]string) *settingRepoStub {
	if items == nil {
		items = map[string]string{}
	}
	return &settingRepoStub{items: items}
}

func (s *settingRepoStub) All(ctx context.Context) ([]models.Setting, error) {
	s.allCalls++
	if s.allErr != nil {
		return nil, s.allErr
	}
	out := make([]models.Setting, 0, len(s.items))
	for k, v := range s.items {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (s *settingRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	out := make([]models.Setting, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			out = append(out, models.Setting{Key: k, Value: v})
		}
	}
	return out, nil
}

func (s *settingRepoStub) Get(ctx context.Context, key string) (*models.Setting, error) {
	v, ok := s.items[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (s *settingRepoStub) Update(ctx context.Context, key, value string) (int64, error) {
	if key == s.failOn {
		return 0, errors.New("write failed")
	}
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	s.updates = append(s.updates, key)
	if _, ok := s.items[key]; !ok {
		return 0, nil
	}
	s.items[key] = value
	return 1, nil
}

func (s *settingRepoStub) Insert(ctx context.Context, key, value string) error {
	s.inserts = append(s.inserts, key)
	s.items[key] = value
	return nil
}

type auditStub struct {
	logs []models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return a.err
}

func newTestSettingsService(repo *settingRepoStub, audit auditWriter) *SettingsService {
	cache := NewCacheService(nil, nil, 0, nil, false)
	return NewSettingsService(repo, cache, audit, nil, nil, nil, SettingsServiceConfig{})
}

func TestSettingsMapIsCachedUntilSave(t *testing.T) {
	repo := newSettingRepoStub(map[string]string{models.SettingHeroTitle: "শিরোনাম"})
	svc := newTestSettingsService(repo, nil)

	first, err := svc.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "শিরোনাম", first[models.SettingHeroTitle])

	_, err = svc.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.allCalls)

	require.NoError(t, svc.Save(context.Background(), []models.Setting{{Key: models.SettingHeroTitle, Value: "নতুন"}}, nil))

	after, err := svc.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "নতুন", after[models.SettingHeroTitle])
	assert.Equal(t, 2, repo.allCalls)
}

// stallingSettingRepo takes its snapshot, then holds the first All call until released.
type stallingSettingRepo struct {
	*settingRepoStub
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *stallingSettingRepo) All(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.settingRepoStub.All(ctx)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return rows, err
}

func TestSettingsMapDoesNotRecacheReadOverlappingSave(t *testing.T) {
	ctx := context.Background()
	repo := &stallingSettingRepo{
		settingRepoStub: newSettingRepoStub(map[string]string{models.SettingSectionOrder: `["hero"]`}),
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc := NewSettingsService(repo, NewCacheService(nil, nil, 0, nil, false), nil, nil, nil, nil, SettingsServiceConfig{})

	done := make(chan map[string]string, 1)
	go func() {
		values, _ := svc.Map(ctx)
		done <- values
	}()

	<-repo.started
	require.NoError(t, svc.Save(ctx, []models.Setting{{Key: models.SettingSectionOrder, Value: `["cta","hero"]`}}, nil))
	close(repo.release)
	assert.Equal(t, `["hero"]`, (<-done)[models.SettingSectionOrder])

	values, err := svc.Map(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["cta","hero"]`, values[models.SettingSectionOrder])
}

func TestSettingsSaveInsertsWhenUpdateMatchesNothing(t *testing.T) {
	repo := newSettingRepoStub(map[string]string{models.SettingHeroTitle: "a"})
	svc := newTestSettingsService(repo, nil)

	err := svc.Save(context.Background(), []models.Setting{
		{Key: models.SettingHeroTitle, Value: "b"},
		{Key: models.SettingCTATitle, Value: "c"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{models.SettingHeroTitle, models.SettingCTATitle}, repo.updates)
	assert.Equal(t, []string{models.SettingCTATitle}, repo.inserts)
	assert.Equal(t, "b", repo.items[models.SettingHeroTitle])
	assert.Equal(t, "c", repo.items[models.SettingCTATitle])
}

func TestSettingsSaveStopsAtFirstFailureWithoutRollback(t *testing.T) {
	repo := newSettingRepoStub(map[string]string{models.SettingSectionOrder: `["hero"]`})
	repo.failOn = models.SettingCustomSections
	svc := newTestSettingsService(repo, nil)

	_, err := svc.Map(context.Background())
	require.NoError(t, err)

	err = svc.Save(context.Background(), []models.Setting{
		{Key: models.SettingSectionOrder, Value: `["cta","hero"]`},
		{Key: models.SettingCustomSections, Value: `[]`},
	}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, models.SettingCustomSections, appErr.Details["failed_key"])
	assert.Equal(t, models.SettingSectionOrder, appErr.Details["written_keys"])
	assert.Equal(t, []string{models.SettingSectionOrder}, WrittenSettingKeys(err))
	assert.Nil(t, WrittenSettingKeys(errors.New("plain")))
	assert.Equal(t, `["cta","hero"]`, repo.items[models.SettingSectionOrder])

	values, err := svc.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `["cta","hero"]`, values[models.SettingSectionOrder])
}

func TestSettingsUpdateRejectsUnknownAndInvalidValues(t *testing.T) {
	repo := newSettingRepoStub(nil)
	svc := newTestSettingsService(repo, nil)

	_, err := svc.Update(context.Background(), models.UpdateSettingsRequest{Values: map[string]string{
		"unknown_key":              "x",
		models.SettingAutoMarking:  "maybe",
		models.SettingMCQTimeLimit: "-3",
	}}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "unknown_key")
	assert.Contains(t, appErr.Details, models.SettingAutoMarking)
	assert.Contains(t, appErr.Details, models.SettingMCQTimeLimit)
	assert.Empty(t, repo.updates)
}

func TestSettingsUpdateNormalisesAndAudits(t *testing.T) {
	repo := newSettingRepoStub(map[string]string{models.SettingAutoMarking: "false"})
	audit := &auditStub{}
	svc := newTestSettingsService(repo, audit)

	items, err := svc.Update(context.Background(), models.UpdateSettingsRequest{Values: map[string]string{
		models.SettingAutoMarking:    " TRUE ",
		models.SettingGoogleFormLink: "https://forms.gle/abc",
	}}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "true", repo.items[models.SettingAutoMarking])
	require.Len(t, audit.logs, 2)
	assert.Equal(t, models.AuditActionSettingUpdate, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "admin-1", *audit.logs[0].UserID)
}

func TestSettingsUpdateRejectsMalformedSectionOrder(t *testing.T) {
	svc := newTestSettingsService(newSettingRepoStub(nil), nil)

	_, err := svc.Update(context.Background(), models.UpdateSettingsRequest{Values: map[string]string{
		models.SettingSectionOrder: `[1,2]`,
	}}, nil)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Details, models.SettingSectionOrder)
}

func TestSettingsItemFallsBackToDefault(t *testing.T) {
	svc := newTestSettingsService(newSettingRepoStub(nil), nil)

	item, err := svc.Item(context.Background(), models.SettingCTAButtonText)
	require.NoError(t, err)
	assert.Equal(t, "যোগ দিন", item.Value)
	assert.False(t, item.Stored)

	_, err = svc.Item(context.Background(), "nope")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSettingsListCoversDefinitions(t *testing.T) {
	svc := newTestSettingsService(newSettingRepoStub(map[string]string{models.SettingManagerName: "উস্তাদ"}), nil)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(svc.Definitions()))
	for _, item := range items {
		if item.Key == models.SettingManagerName {
			assert.Equal(t, "উস্তাদ", item.Value)
			assert.True(t, item.Stored)
		}
	}
}

func TestLookupTreatsEmptyAsUnset(t *testing.T) {
	values := map[string]string{"a": "", "b": "x"}
	assert.Equal(t, "fb", Lookup(values, "a", "fb"))
	assert.Equal(t, "x", Lookup(values, "b", "fb"))
	assert.Equal(t, "fb", Lookup(values, "c", "fb"))
}
