package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
)

type surahNumberStub struct {
	surahs map[int]models.Surah
}

func (s surahNumberStub) FindByNumber(ctx context.Context, number int) (*models.Surah, error) {
	surah, ok := s.surahs[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &surah, nil
}

type verifierStub struct {
	known map[string]bool
	err   error
	seen  []string
}

func (v *verifierStub) VerifyUserID(ctx context.Context, identifier string) (bool, error) {
	v.seen = append(v.seen, identifier)
	if v.err != nil {
		return false, v.err
	}
	return v.known[identifier], nil
}

type limiterStub struct {
	remaining int
	resets    int
}

func (l *limiterStub) Enabled() bool { return true }

func (l *limiterStub) Allow(ctx context.Context, key string) (bool, error) {
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

func (l *limiterStub) Reset(ctx context.Context, key string) error {
	l.resets++
	return nil
}

func stringPtr(v string) *string { return &v }

func newTestAccessService(surahs map[int]models.Surah, verifier *verifierStub, values map[string]string, limiter attemptLimiter) *CourseAccessService {
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	return NewCourseAccessService(surahNumberStub{surahs: surahs}, verifier, &settingsStoreStub{values: values}, limiter, signer, nil, nil, CourseAccessServiceConfig{
		PublicBase:  "https://cdn.example",
		DownloadURL: "https://site.example/files/download",
	})
}

func TestVerifyRejectsEmptyIdentifierBeforeCallingOut(t *testing.T) {
	verifier := &verifierStub{}
	svc := newTestAccessService(map[int]models.Surah{96: {ID: "s96", Number: 96}}, verifier, nil, nil)

	_, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 96, Identifier: "   "})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, MsgIdentifierRequired, appErr.Details["identifier"])
	assert.Empty(t, verifier.seen)
}

func TestVerifyPlaceholderForMissingPDFAndExamLinkPresent(t *testing.T) {
	surah := models.Surah{ID: "s97", Number: 97, GoogleFormLink: stringPtr("https://forms.gle/qadr")}
	verifier := &verifierStub{known: map[string]bool{"QUR-0001": true}}
	svc := newTestAccessService(map[int]models.Surah{97: surah}, verifier, nil, nil)

	access, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 97, Identifier: " qur-0001 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"QUR-0001"}, verifier.seen)
	assert.Equal(t, models.AccessVerified, access.State)
	assert.False(t, access.PDF.Available)
	assert.Equal(t, MsgComingSoon, access.PDF.Placeholder)
	assert.True(t, access.Exam.Available)
	assert.Equal(t, "https://forms.gle/qadr", access.Exam.URL)
	assert.Nil(t, access.Surah.GoogleFormLink)
}

func TestVerifySignsOwnPDFAndKeepsForeignURL(t *testing.T) {
	own := models.Surah{ID: "s98", Number: 98, PDFURL: stringPtr("https://cdn.example/surah-pdfs/98.pdf")}
	foreign := models.Surah{ID: "s99", Number: 99, PDFURL: stringPtr("https://drive.example/99.pdf")}
	verifier := &verifierStub{known: map[string]bool{"QUR-0002": true}}
	svc := newTestAccessService(map[int]models.Surah{98: own, 99: foreign}, verifier, map[string]string{
		models.SettingGoogleFormLink: "https://forms.gle/global",
	}, nil)

	access, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 98, Identifier: "QUR-0002"})
	require.NoError(t, err)
	assert.True(t, access.PDF.Available)
	assert.True(t, strings.HasPrefix(access.PDF.URL, "https://site.example/files/download?token="))
	require.NotNil(t, access.PDF.ExpiresAt)
	assert.Equal(t, "https://forms.gle/global", access.Exam.URL)
	assert.Nil(t, access.Surah.PDFURL)

	access, err = svc.Verify(context.Background(), AccessRequest{SurahNumber: 99, Identifier: "QUR-0002"})
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/99.pdf", access.PDF.URL)
	assert.Nil(t, access.PDF.ExpiresAt)
}

func TestVerifyDistinguishesRejectedFromFailure(t *testing.T) {
	surahs := map[int]models.Surah{100: {ID: "s100", Number: 100}}

	svc := newTestAccessService(surahs, &verifierStub{known: map[string]bool{}}, nil, nil)
	_, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 100, Identifier: "QUR-9999"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnverifiedIdentifier))
	assert.Equal(t, MsgIdentifierNotFound, appErrors.FromError(err).Message)

	svc = newTestAccessService(surahs, &verifierStub{err: errors.New("rpc down")}, nil, nil)
	_, err = svc.Verify(context.Background(), AccessRequest{SurahNumber: 100, Identifier: "QUR-0001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrVerificationFailed))
	assert.Equal(t, MsgVerificationFailed, appErrors.FromError(err).Message)
}

func TestVerifyUnknownSurah(t *testing.T) {
	svc := newTestAccessService(map[int]models.Surah{}, &verifierStub{}, nil, nil)
	_, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 1, Identifier: "QUR-0001"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestVerifyHonoursAttemptLimiter(t *testing.T) {
	surahs := map[int]models.Surah{101: {ID: "s101", Number: 101}}
	limiter := &limiterStub{remaining: 1}
	verifier := &verifierStub{known: map[string]bool{}}
	svc := newTestAccessService(surahs, verifier, nil, limiter)

	_, err := svc.Verify(context.Background(), AccessRequest{SurahNumber: 101, Identifier: "QUR-1", ClientKey: "10.0.0.1"})
	assert.True(t, errors.Is(err, appErrors.ErrUnverifiedIdentifier))

	_, err = svc.Verify(context.Background(), AccessRequest{SurahNumber: 101, Identifier: "QUR-1", ClientKey: "10.0.0.1"})
	assert.True(t, errors.Is(err, appErrors.ErrTooManyAttempts))
	assert.Len(t, verifier.seen, 1)
	assert.Zero(t, limiter.resets)
}
