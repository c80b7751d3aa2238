package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/export"
)

type profileListStub struct {
	profiles []models.Profile
	err      error
}

func (s *profileListStub) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	return s.profiles, len(s.profiles), s.err
}

func (s *profileListStub) All(ctx context.Context) ([]models.Profile, error) {
	return s.profiles, s.err
}

// pagedSubmissions serves rows in pages of size and records the filters it saw.
type pagedSubmissions struct {
	rows    []models.Submission
	size    int
	filters []models.SubmissionFilter
}

func (p *pagedSubmissions) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	p.filters = append(p.filters, filter)
	var matched []models.Submission
	for _, r := range p.rows {
		if filter.UserID == "" || r.UserID == filter.UserID {
			matched = append(matched, r)
		}
	}
	start := (filter.Page - 1) * p.size
	if start >= len(matched) {
		return nil, len(matched), nil
	}
	end := start + p.size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

type joinListStub struct{ joins []models.WhatsAppJoin }

func (s joinListStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, int, error) {
	return s.joins, len(s.joins), nil
}

type donationListStub struct{ donations []models.Donation }

func (s donationListStub) List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, int, error) {
	return s.donations, len(s.donations), nil
}

func newExportServiceForTest(profiles *profileListStub, subs *pagedSubmissions) *ExportService {
	joined := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	joins := joinListStub{joins: []models.WhatsAppJoin{
		{Name: "রহিম", Phone: "018", JoinType: models.JoinPaid, CreatedAt: joined},
		{Name: "করিম", Phone: "017", JoinType: models.JoinFree, CreatedAt: joined},
	}}
	donations := donationListStub{donations: []models.Donation{
		{DonorName: "রহিম", PaymentMethod: models.PaymentBkash, TransactionID: "TX1", Amount: floatPtr(250.5), Status: models.StatusVerified, CreatedAt: joined},
	}}
	svc := NewExportService(profiles, subs, joins, donations, export.NewCSVExporter(), export.NewPDFExporter(""), zap.NewNop())
	svc.now = func() time.Time { return joined }
	return svc
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportUsersCSV(t *testing.T) {
	profiles := &profileListStub{profiles: []models.Profile{
		{UserID: "QUR-0001", Name: "আব্দুল্লাহ", Email: "a@example.com", Phone: stringPtr("01700000000"), CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{UserID: "QUR-0002", Name: "ফাতিমা", Email: "f@example.com"},
	}}
	svc := newExportServiceForTest(profiles, &pagedSubmissions{size: 10})

	file, err := svc.Export(context.Background(), models.ExportUsers, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "users_20240301_090000.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")

	records := readCSV(t, file.Data)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"আইডি", "নাম", "ইমেইল", "ফোন", "যোগদান"}, records[0])
	assert.Equal(t, []string{"QUR-0001", "আব্দুল্লাহ", "a@example.com", "01700000000", "2024-01-02"}, records[1])
	assert.Equal(t, "", records[2][3])
}

func TestExportJoinsLabelsJoinType(t *testing.T) {
	svc := newExportServiceForTest(&profileListStub{}, &pagedSubmissions{size: 10})

	file, err := svc.Export(context.Background(), models.ExportJoins, models.ExportFormatCSV)
	require.NoError(t, err)
	records := readCSV(t, file.Data)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"নাম", "ফোন", "ধরন", "তারিখ"}, records[0])
	assert.Equal(t, "হাদিয়া", records[1][2])
	assert.Equal(t, "ফ্রি", records[2][2])
}

func TestExportSubmissionsReadsEveryPage(t *testing.T) {
	subs := &pagedSubmissions{size: 2}
	for i := 0; i < 5; i++ {
		subs.rows = append(subs.rows, models.Submission{Answer: models.Answer{AnswerText: "x"}, SurahNumber: 1, SurahName: "আল-ফাতিহা"})
	}
	svc := newExportServiceForTest(&profileListStub{}, subs)

	file, err := svc.Export(context.Background(), models.ExportSubmissions, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, file.Data), 6)
	assert.Len(t, subs.filters, 3)
}

func TestExportDonationsPDF(t *testing.T) {
	svc := newExportServiceForTest(&profileListStub{}, &pagedSubmissions{size: 10})

	file, err := svc.Export(context.Background(), models.ExportDonations, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
	assert.Equal(t, "donations_20240301_090000.pdf", file.Filename)
}

func TestExportRejectsUnknownInput(t *testing.T) {
	svc := newExportServiceForTest(&profileListStub{}, &pagedSubmissions{size: 10})

	_, err := svc.Export(context.Background(), models.ExportUsers, "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), "grades", models.ExportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	failing := newExportServiceForTest(&profileListStub{err: errors.New("db down")}, &pagedSubmissions{size: 10})
	_, err = failing.Export(context.Background(), models.ExportUsers, models.ExportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "whatsapp-joins", sanitizeFilename("whatsapp/joins"))
	assert.Equal(t, "a_b", sanitizeFilename("a b"))
}
