package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type learnerProfileStore interface {
	FindByAuthUserID(ctx context.Context, authUserID string) (*models.Profile, error)
	UpdateContact(ctx context.Context, authUserID, name string, phone *string) error
}

type learnerAnswerReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Answer, error)
}

type questionBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

type overviewReader interface {
	AdminOverview(ctx context.Context) (*models.AdminOverview, error)
}

// DashboardServiceConfig tunes caching of the admin overview.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService aggregates the learner home screen and the admin overview.
type DashboardService struct {
	profiles  learnerProfileStore
	surahs    surahLister
	answers   learnerAnswerReader
	questions questionBatchReader
	overview  overviewReader
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(profiles learnerProfileStore, surahs surahLister, answers learnerAnswerReader, questions questionBatchReader, overview overviewReader, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		profiles:  profiles,
		surahs:    surahs,
		answers:   answers,
		questions: questions,
		overview:  overview,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Learner loads profile, surahs and answers in parallel, resolves each answer's question
// and surah, and derives the progress numbers.
func (s *DashboardService) Learner(ctx context.Context, authUserID string) (*models.LearnerDashboard, error) {
	var (
		profile *models.Profile
		surahs  []models.Surah
		answers []models.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.FindByAuthUserID(gctx, authUserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		list, err := s.surahs.List(gctx)
		surahs = list
		return err
	})
	g.Go(func() error {
		list, err := s.answers.ListByUser(gctx, authUserID)
		answers = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}

	questions, err := s.questionIndex(ctx, answers)
	if err != nil {
		return nil, err
	}
	surahNames := make(map[string]string, len(surahs))
	for _, surah := range surahs {
		surahNames[surah.ID] = surah.NameBengali
	}

	views := make([]models.AnswerView, 0, len(answers))
	answered := make(map[string]struct{})
	totalMarks := 0
	for _, a := range answers {
		view := models.AnswerView{Answer: a}
		if q, ok := questions[a.QuestionID]; ok {
			view.QuestionText = q.Text
			view.SurahID = q.SurahID
			view.SurahName = surahNames[q.SurahID]
			answered[q.SurahID] = struct{}{}
		}
		if a.Marks != nil {
			totalMarks += *a.Marks
		}
		views = append(views, view)
	}
	if surahs == nil {
		surahs = []models.Surah{}
	}

	return &models.LearnerDashboard{
		Profile: profile,
		Surahs:  surahs,
		Answers: views,
		Stats: models.DashboardStats{
			TotalSubmissions:  len(answers),
			TotalMarks:        totalMarks,
			AnsweredSurahs:    len(answered),
			TotalSurahs:       len(surahs),
			CompletionPercent: models.CompletionPercent(len(answered), len(surahs)),
		},
	}, nil
}

func (s *DashboardService) questionIndex(ctx context.Context, answers []models.Answer) (map[string]models.Question, error) {
	ids := make([]string, 0, len(answers))
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}
	index := make(map[string]models.Question, len(ids))
	if len(ids) == 0 {
		return index, nil
	}
	list, err := s.questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve questions")
	}
	for _, q := range list {
		index[q.ID] = q
	}
	return index, nil
}

// Admin returns the back office counters, cached for the configured TTL. The
// boolean reports whether they came from the cache.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminOverview, bool, error) {
	var overview models.AdminOverview
	hit, err := s.cache.Fetch(ctx, CacheKeyAdminOverview, &overview, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.overview.AdminOverview(ctx)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")
	}
	return &overview, hit, nil
}

// UpdateProfile edits the learner's own name and phone.
func (s *DashboardService) UpdateProfile(ctx context.Context, authUserID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	details := map[string]string{}
	if len([]rune(name)) < 2 {
		details["name"] = MsgNameTooShort
	}
	if phone != "" && !validPhone(phone) {
		details["phone"] = MsgPhoneInvalid
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid profile payload", details)
	}

	if err := s.profiles.UpdateContact(ctx, authUserID, name, strPtr(phone)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	profile, err := s.profiles.FindByAuthUserID(ctx, authUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload profile")
	}
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     strPtr(authUserID),
			Action:     models.AuditActionProfileUpdate,
			Resource:   "profile",
			ResourceID: strPtr(profile.ID),
			IPAddress:  "system",
			UserAgent:  "dashboard-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to record profile audit", zap.Error(err))
		}
	}
	return profile, nil
}
