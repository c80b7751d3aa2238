package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type surahLister interface {
	List(ctx context.Context) ([]models.Surah, error)
}

const registerPath = "/register"

// HomepageServiceConfig tunes homepage composition.
type HomepageServiceConfig struct {
	CacheTTL   time.Duration
	HadiyaLink string
}

// HomepageService composes the public landing page from settings and surahs.
type HomepageService struct {
	settings settingsReader
	surahs   surahLister
	cache    *CacheService
	logger   *zap.Logger
	cfg      HomepageServiceConfig
}

// NewHomepageService constructs a HomepageService.
func NewHomepageService(settings settingsReader, surahs surahLister, cache *CacheService, logger *zap.Logger, cfg HomepageServiceConfig) *HomepageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HadiyaLink == "" {
		cfg.HadiyaLink = "/hadiya"
	}
	return &HomepageService{settings: settings, surahs: surahs, cache: cache, logger: logger, cfg: cfg}
}

// Compose returns the ordered homepage sections.
func (s *HomepageService) Compose(ctx context.Context) (*models.Homepage, error) {
	var page models.Homepage
	_, err := s.cache.Fetch(ctx, CacheKeyHomepage, &page, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.compose(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *HomepageService) compose(ctx context.Context) (*models.Homepage, error) {
	values, err := s.settings.Map(ctx)
	if err != nil {
		return nil, err
	}
	g := func(key string) string {
		return Lookup(values, key, SettingDefault(key))
	}

	order := models.ParseOrder(values[models.SettingSectionOrder])
	customs := models.ParseCustomSections(values[models.SettingCustomSections])
	refs := models.ResolveSections(order, customs)

	page := &models.Homepage{
		SiteName:   g(models.SettingSiteName),
		LogoURL:    g(models.SettingLogoURL),
		HadiyaLink: s.cfg.HadiyaLink,
		Sections:   make([]models.HomeSection, 0, len(refs)),
	}

	var course *models.CourseView
	for _, ref := range refs {
		section := models.HomeSection{
			Key:     ref.Key,
			Kind:    ref.Kind,
			Builtin: ref.Builtin,
			Label:   models.SectionLabel(ref.Key, customs),
		}
		if ref.Kind == models.SectionKindCustom {
			section.Custom = ref.Custom
			page.Sections = append(page.Sections, section)
			continue
		}
		switch ref.Builtin {
		case models.SectionHero:
			section.Hero = &models.HeroView{
				BannerURL: g(models.SettingHeroBannerURL),
				Bismillah: g(models.SettingHeroBismillah),
				Title:     g(models.SettingHeroTitle),
				Subtitle:  g(models.SettingHeroSubtitle),
			}
		case models.SectionManager:
			section.Manager = &models.ManagerView{
				Name:    g(models.SettingManagerName),
				LogoURL: g(models.SettingLogoURL),
			}
		case models.SectionFeatures:
			cards := make([]models.FeatureCard, 0, 3)
			for n := 1; n <= 3; n++ {
				cards = append(cards, models.FeatureCard{
					Title: g(models.FeatureTitleKey(n)),
					Desc:  g(models.FeatureDescKey(n)),
				})
			}
			section.Features = &models.FeaturesView{
				Title:    g(models.SettingFeaturesTitle),
				Subtitle: g(models.SettingFeaturesSubtitle),
				Cards:    cards,
			}
		case models.SectionCourse:
			if course == nil {
				course, err = s.course(ctx, g)
				if err != nil {
					return nil, err
				}
			}
			section.Course = course
		case models.SectionCTA:
			section.CTA = &models.CTAView{
				Title:      g(models.SettingCTATitle),
				Desc:       g(models.SettingCTADesc),
				ButtonText: g(models.SettingCTAButtonText),
				ButtonLink: registerPath,
			}
		case models.SectionWhatsApp:
			section.WhatsApp = &models.WhatsAppView{
				Title:      g(models.SettingWhatsAppTitle),
				Desc:       g(models.SettingWhatsAppDesc),
				ButtonText: g(models.SettingWhatsAppButton),
			}
		}
		page.Sections = append(page.Sections, section)
	}
	return page, nil
}

func (s *HomepageService) course(ctx context.Context, g func(string) string) (*models.CourseView, error) {
	surahs, err := s.surahs.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list surahs")
	}
	view := &models.CourseView{
		Title:    g(models.SettingCourseTitle),
		Subtitle: g(models.SettingCourseSubtitle),
		Surahs:   make([]models.SurahSummary, 0, len(surahs)),
	}
	for _, surah := range surahs {
		view.Surahs = append(view.Surahs, surah.Summary())
	}
	return view, nil
}
