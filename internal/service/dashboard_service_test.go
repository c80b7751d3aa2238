package service

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type profileStoreStub struct {
	profiles map[string]*models.Profile
	updated  []string
}

func (p *profileStoreStub) FindByAuthUserID(ctx context.Context, authUserID string) (*models.Profile, error) {
	profile, ok := p.profiles[authUserID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *profile
	return &copied, nil
}

func (p *profileStoreStub) UpdateContact(ctx context.Context, authUserID, name string, phone *string) error {
	profile, ok := p.profiles[authUserID]
	if !ok {
		return sql.ErrNoRows
	}
	profile.Name = name
	profile.Phone = phone
	p.updated = append(p.updated, authUserID)
	return nil
}

type answerListStub struct {
	answers []models.Answer
	err     error
}

func (a answerListStub) ListByUser(ctx context.Context, userID string) ([]models.Answer, error) {
	return a.answers, a.err
}

type questionBatchStub struct {
	questions map[string]models.Question
	requested []string
}

func (q *questionBatchStub) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	q.requested = append(q.requested, ids...)
	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := q.questions[id]; ok {
			out = append(out, question)
		}
	}
	return out, nil
}

type overviewStub struct {
	calls int32
}

func (o *overviewStub) AdminOverview(ctx context.Context) (*models.AdminOverview, error) {
	atomic.AddInt32(&o.calls, 1)
	return &models.AdminOverview{Learners: 4, Surahs: 3, TotalMarks: 17}, nil
}

func intPtr(v int) *int { return &v }

func newTestDashboard(profiles *profileStoreStub, surahs []models.Surah, answers answerListStub, questions *questionBatchStub, overview *overviewStub, audit *auditStub) *DashboardService {
	cache := NewCacheService(nil, nil, 0, nil, false)
	var writer auditWriter
	if audit != nil {
		writer = audit
	}
	return NewDashboardService(profiles, &surahListStub{surahs: surahs}, answers, questions, overview, cache, writer, nil, nil, DashboardServiceConfig{})
}

func TestLearnerDashboardJoinsAndComputesStats(t *testing.T) {
	profiles := &profileStoreStub{profiles: map[string]*models.Profile{"auth-1": {ID: "p1", UserID: "QUR-0001", Name: "Learner"}}}
	surahs := []models.Surah{
		{ID: "s1", Number: 96, NameBengali: "আলাক্ব"},
		{ID: "s2", Number: 97, NameBengali: "ক্বদর"},
		{ID: "s3", Number: 98, NameBengali: "বাইয়্যিনাহ"},
	}
	answers := answerListStub{answers: []models.Answer{
		{ID: "a1", QuestionID: "q1", Marks: intPtr(5)},
		{ID: "a2", QuestionID: "q2", Marks: nil},
		{ID: "a3", QuestionID: "q3", Marks: intPtr(2)},
		{ID: "a4", QuestionID: "q1"},
	}}
	questions := &questionBatchStub{questions: map[string]models.Question{
		"q1": {ID: "q1", SurahID: "s1", Text: "প্রথম প্রশ্ন"},
		"q2": {ID: "q2", SurahID: "s1", Text: "দ্বিতীয় প্রশ্ন"},
		"q3": {ID: "q3", SurahID: "s2", Text: "তৃতীয় প্রশ্ন"},
	}}
	svc := newTestDashboard(profiles, surahs, answers, questions, &overviewStub{}, nil)

	dash, err := svc.Learner(context.Background(), "auth-1")
	require.NoError(t, err)
	require.NotNil(t, dash.Profile)
	assert.Equal(t, "QUR-0001", dash.Profile.UserID)
	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, questions.requested)

	require.Len(t, dash.Answers, 4)
	assert.Equal(t, "প্রথম প্রশ্ন", dash.Answers[0].QuestionText)
	assert.Equal(t, "আলাক্ব", dash.Answers[0].SurahName)
	assert.Equal(t, "ক্বদর", dash.Answers[2].SurahName)

	assert.Equal(t, models.DashboardStats{
		TotalSubmissions:  4,
		TotalMarks:        7,
		AnsweredSurahs:    2,
		TotalSurahs:       3,
		CompletionPercent: 67,
	}, dash.Stats)
}

func TestLearnerDashboardWithoutSurahsOrProfile(t *testing.T) {
	svc := newTestDashboard(&profileStoreStub{}, nil, answerListStub{}, &questionBatchStub{}, &overviewStub{}, nil)

	dash, err := svc.Learner(context.Background(), "auth-9")
	require.NoError(t, err)
	assert.Nil(t, dash.Profile)
	assert.NotNil(t, dash.Surahs)
	assert.Empty(t, dash.Answers)
	assert.Zero(t, dash.Stats.CompletionPercent)
}

func TestLearnerDashboardFailsWhenAnyReadFails(t *testing.T) {
	svc := newTestDashboard(&profileStoreStub{}, nil, answerListStub{err: errors.New("db down")}, &questionBatchStub{}, &overviewStub{}, nil)

	_, err := svc.Learner(context.Background(), "auth-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAdminOverviewIsCached(t *testing.T) {
	overview := &overviewStub{}
	svc := newTestDashboard(&profileStoreStub{}, nil, answerListStub{}, &questionBatchStub{}, overview, nil)

	first, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 17, first.TotalMarks)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&overview.calls))
}

func TestUpdateProfileValidatesAndAudits(t *testing.T) {
	profiles := &profileStoreStub{profiles: map[string]*models.Profile{"auth-1": {ID: "p1", AuthUserID: "auth-1", Name: "Old"}}}
	audit := &auditStub{}
	svc := newTestDashboard(profiles, nil, answerListStub{}, &questionBatchStub{}, &overviewStub{}, audit)

	_, err := svc.UpdateProfile(context.Background(), "auth-1", models.UpdateProfileRequest{Name: "ক", Phone: "12"})
	require.Error(t, err)
	details := appErrors.FromError(err).Details
	assert.Equal(t, MsgNameTooShort, details["name"])
	assert.Equal(t, MsgPhoneInvalid, details["phone"])
	assert.Empty(t, profiles.updated)

	profile, err := svc.UpdateProfile(context.Background(), "auth-1", models.UpdateProfileRequest{Name: " নতুন নাম ", Phone: "01712345678"})
	require.NoError(t, err)
	assert.Equal(t, "নতুন নাম", profile.Name)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, "01712345678", *profile.Phone)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProfileUpdate, audit.logs[0].Action)

	_, err = svc.UpdateProfile(context.Background(), "auth-404", models.UpdateProfileRequest{Name: "Someone"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
