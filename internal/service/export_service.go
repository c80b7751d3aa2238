package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
	"github.com/noah-isme/eknojore-quran-api/pkg/export"
)

// exportPageSize is the largest page the repositories serve.
const exportPageSize = 200

const exportTimeLayout = "2006-01-02"

type profileExporter interface {
	All(ctx context.Context) ([]models.Profile, error)
}

type joinLister interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.WhatsAppJoin, int, error)
}

type donationLister interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Donation, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders admin tables as CSV or PDF.
type ExportService struct {
	profiles  profileExporter
	answers   submissionLister
	joins     joinLister
	donations donationLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get the package defaults.
func NewExportService(profiles profileExporter, answers submissionLister, joins joinLister, donations donationLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{
		profiles:  profiles,
		answers:   answers,
		joins:     joins,
		donations: donations,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		now:       time.Now,
	}
}

// Export builds the dataset for kind and renders it in format.
func (s *ExportService) Export(ctx context.Context, kind models.ExportKind, format models.ExportFormat) (*ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid export format", map[string]string{"format": "must be one of: csv pdf"})
	}
	dataset, title, err := s.buildDataset(ctx, kind)
	if err != nil {
		return nil, err
	}

	var payload []byte
	contentType := "text/csv; charset=utf-8"
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("export rendered", zap.String("kind", string(kind)), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))

	return &ExportFile{
		Filename:    s.buildFilename(kind, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func (s *ExportService) buildFilename(kind models.ExportKind, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(string(kind)), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, kind models.ExportKind) (export.Dataset, string, error) {
	var (
		ds    export.Dataset
		title string
		err   error
	)
	switch kind {
	case models.ExportUsers:
		ds, title, err = s.buildUserDataset(ctx)
	case models.ExportSubmissions:
		ds, title, err = s.buildSubmissionDataset(ctx)
	case models.ExportJoins:
		ds, title, err = s.buildJoinDataset(ctx)
	case models.ExportDonations:
		ds, title, err = s.buildDonationDataset(ctx)
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrNotFound, "unknown export "+string(kind))
	}
	if err != nil {
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export data")
	}
	return ds, title, nil
}

func (s *ExportService) buildUserDataset(ctx context.Context) (export.Dataset, string, error) {
	profiles, err := s.profiles.All(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	ds := export.Dataset{Columns: []export.Column{
		{Key: "user_id", Title: "আইডি", Width: 1},
		{Key: "name", Title: "নাম", Width: 2},
		{Key: "email", Title: "ইমেইল", Width: 2.5},
		{Key: "phone", Title: "ফোন", Width: 1.5},
		{Key: "joined", Title: "যোগদান", Width: 1},
	}}
	for _, p := range profiles {
		ds.Rows = append(ds.Rows, map[string]string{
			"user_id": p.UserID,
			"name":    p.Name,
			"email":   p.Email,
			"phone":   deref(p.Phone),
			"joined":  p.CreatedAt.Format(exportTimeLayout),
		})
	}
	return ds, "ব্যবহারকারী তালিকা", nil
}

func (s *ExportService) buildSubmissionDataset(ctx context.Context) (export.Dataset, string, error) {
	subs, err := collectPages(func(page int) ([]models.Submission, int, error) {
		return s.answers.ListSubmissions(ctx, models.SubmissionFilter{Page: page, PageSize: exportPageSize})
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	ds := export.Dataset{Columns: []export.Column{
		{Key: "user_id", Title: "আইডি", Width: 1},
		{Key: "name", Title: "নাম", Width: 1.5},
		{Key: "surah", Title: "সূরা", Width: 1.5},
		{Key: "question", Title: "প্রশ্ন", Width: 3},
		{Key: "answer", Title: "উত্তর", Width: 2},
		{Key: "marks", Title: "নম্বর", Width: 0.8},
		{Key: "submitted", Title: "তারিখ", Width: 1},
	}}
	for _, sub := range subs {
		marks := "-"
		if sub.Marks != nil {
			marks = strconv.Itoa(*sub.Marks) + "/" + strconv.Itoa(sub.QuestionPoints)
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"user_id":   deref(sub.LearnerUserID),
			"name":      deref(sub.LearnerName),
			"surah":     fmt.Sprintf("%d. %s", sub.SurahNumber, sub.SurahName),
			"question":  sub.QuestionText,
			"answer":    sub.AnswerText,
			"marks":     marks,
			"submitted": sub.SubmittedAt.Format(exportTimeLayout),
		})
	}
	return ds, "উত্তর তালিকা", nil
}

func (s *ExportService) buildJoinDataset(ctx context.Context) (export.Dataset, string, error) {
	joins, err := collectPages(func(page int) ([]models.WhatsAppJoin, int, error) {
		return s.joins.List(ctx, models.ReviewFilter{Page: page, PageSize: exportPageSize})
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	ds := export.Dataset{Columns: []export.Column{
		{Key: "name", Title: "নাম", Width: 2},
		{Key: "phone", Title: "ফোন", Width: 1.5},
		{Key: "type", Title: "ধরন", Width: 1},
		{Key: "created", Title: "তারিখ", Width: 1},
	}}
	for _, j := range joins {
		joinType := "ফ্রি"
		if j.JoinType == models.JoinPaid {
			joinType = "হাদিয়া"
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"name":    j.Name,
			"phone":   j.Phone,
			"type":    joinType,
			"created": j.CreatedAt.Format(exportTimeLayout),
		})
	}
	return ds, "হোয়াটসঅ্যাপ গ্রুপ অনুরোধ", nil
}

func (s *ExportService) buildDonationDataset(ctx context.Context) (export.Dataset, string, error) {
	donations, err := collectPages(func(page int) ([]models.Donation, int, error) {
		return s.donations.List(ctx, models.ReviewFilter{Page: page, PageSize: exportPageSize})
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	ds := export.Dataset{Columns: []export.Column{
		{Key: "name", Title: "নাম", Width: 1.5},
		{Key: "phone", Title: "ফোন", Width: 1.2},
		{Key: "method", Title: "মাধ্যম", Width: 0.8},
		{Key: "trx", Title: "ট্রানজেকশন আইডি", Width: 1.5},
		{Key: "amount", Title: "পরিমাণ", Width: 0.8},
		{Key: "status", Title: "অবস্থা", Width: 0.8},
		{Key: "created", Title: "তারিখ", Width: 1},
	}}
	for _, d := range donations {
		amount := ""
		if d.Amount != nil {
			amount = strconv.FormatFloat(*d.Amount, 'f', -1, 64)
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"name":    d.DonorName,
			"phone":   deref(d.DonorPhone),
			"method":  string(d.PaymentMethod),
			"trx":     d.TransactionID,
			"amount":  amount,
			"status":  string(d.Status),
			"created": d.CreatedAt.Format(exportTimeLayout),
		})
	}
	return ds, "হাদিয়া তালিকা", nil
}

// collectPages calls fetch for consecutive pages until total rows are read.
func collectPages[T any](fetch func(page int) ([]T, int, error)) ([]T, error) {
	out := []T{}
	for page := 1; ; page++ {
		rows, total, err := fetch(page)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
