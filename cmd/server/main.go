package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/eknojore-quran-api/api/swagger"
	"github.com/noah-isme/eknojore-quran-api/internal/handler"
	"github.com/noah-isme/eknojore-quran-api/internal/middleware"
	"github.com/noah-isme/eknojore-quran-api/internal/models"
	"github.com/noah-isme/eknojore-quran-api/internal/repository"
	"github.com/noah-isme/eknojore-quran-api/internal/service"
	"github.com/noah-isme/eknojore-quran-api/migrations"
	"github.com/noah-isme/eknojore-quran-api/pkg/cache"
	"github.com/noah-isme/eknojore-quran-api/pkg/config"
	"github.com/noah-isme/eknojore-quran-api/pkg/database"
	"github.com/noah-isme/eknojore-quran-api/pkg/export"
	"github.com/noah-isme/eknojore-quran-api/pkg/jobs"
	"github.com/noah-isme/eknojore-quran-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/eknojore-quran-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/eknojore-quran-api/pkg/middleware/requestid"
	"github.com/noah-isme/eknojore-quran-api/pkg/storage"
	"github.com/noah-isme/eknojore-quran-api/web"
)

// @title Ek Nojore Quran API
// @version 1.0.0
// @description Quran course site: public pages, learner access and admin back office
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	grantAdmin := flag.String("grant-admin", "", "grant the admin role to the account with this email and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	if *grantAdmin != "" {
		if err := grantAdminRole(ctx, db, *grantAdmin); err != nil {
			logr.Fatal("failed to grant admin role", zap.String("email", *grantAdmin), zap.Error(err))
		}
		logr.Info("admin role granted", zap.String("email", *grantAdmin))
		return
	}

	if err := run(ctx, cfg, db, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func grantAdminRole(ctx context.Context, db *sqlx.DB, email string) error {
	repo := repository.NewAuthRepository(db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no account registered with %s", email)
		}
		return err
	}
	return repo.GrantRole(ctx, user.ID, models.RoleAdmin)
}

func run(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) error {
	metricsSvc := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "eknojore:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Settings.CacheTTL, logr, redisClient != nil)

	blobs, err := storage.NewBlobStore(cfg.Storage, logr)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	queue := jobs.NewQueue("blob-cleanup", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	cleanup := service.NewBlobCleanupService(queue, blobs, metricsSvc, logr)
	cleanup.Register(queue)
	queue.Start(ctx)
	defer queue.Stop()

	authRepo := repository.NewAuthRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	surahRepo := repository.NewSurahRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	joinRepo := repository.NewWhatsAppJoinRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	limiter := cache.NewAttemptLimiter(redisClient, "eknojore:access:", cfg.Access.MaxAttempts, cfg.Access.Window)

	validate := service.NewValidator()

	authSvc := service.NewAuthService(authRepo, profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	settingsSvc := service.NewSettingsService(settingRepo, cacheSvc, authRepo, metricsSvc, validate, logr, service.SettingsServiceConfig{
		CacheTTL: cfg.Settings.CacheTTL,
	})
	sectionSvc := service.NewSectionService(settingsSvc, blobs, cleanup, validate, logr, service.SectionServiceConfig{
		ImageMaxWidth: cfg.Storage.ImageMaxWidth,
	})
	surahSvc := service.NewSurahService(surahRepo, blobs, cleanup, cacheSvc, authRepo, validate, logr, service.SurahServiceConfig{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		CacheTTL:       cfg.Settings.CacheTTL,
	})
	homepageSvc := service.NewHomepageService(settingsSvc, surahRepo, cacheSvc, logr, service.HomepageServiceConfig{
		CacheTTL:   cfg.Settings.CacheTTL,
		HadiyaLink: cfg.Site.DonationLink,
	})
	accessSvc := service.NewCourseAccessService(surahRepo, accessRepo, settingsSvc, limiter, signer, metricsSvc, logr, service.CourseAccessServiceConfig{
		PublicBase:  blobs.PublicBase(),
		DownloadURL: cfg.Site.BaseURL + "/files/download",
	})
	questionSvc := service.NewQuestionService(questionRepo, surahRepo, cacheSvc, authRepo, validate, logr)
	answerSvc := service.NewAnswerService(answerRepo, questionRepo, settingsSvc, cacheSvc, authRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(profileRepo, surahRepo, answerRepo, questionRepo, dashboardRepo, cacheSvc, authRepo, validate, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	donationSvc := service.NewDonationService(donationRepo, cacheSvc, authRepo, validate, logr)
	joinSvc := service.NewWhatsAppJoinService(joinRepo, settingsSvc, cacheSvc, authRepo, validate, logr, service.WhatsAppJoinServiceConfig{
		GroupLink:    cfg.Site.WhatsAppGroupLink,
		DonationLink: cfg.Site.DonationLink,
	})
	hadiyaSvc := service.NewHadiyaService(settingsSvc, blobs, logr)
	mediaSvc := service.NewMediaService(settingsSvc, blobs, cleanup, logr, service.MediaServiceConfig{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		ImageMaxWidth:  cfg.Storage.ImageMaxWidth,
	})
	userSvc := service.NewUserService(profileRepo, answerRepo, logr)
	exportSvc := service.NewExportService(profileRepo, answerRepo, joinRepo, donationRepo, export.NewCSVExporter(), export.NewPDFExporter(cfg.Export.FontPath), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	homeHandler := handler.NewHomeHandler(homepageSvc, hadiyaSvc)
	surahHandler := handler.NewSurahHandler(surahSvc, accessSvc)
	questionHandler := handler.NewQuestionHandler(questionSvc, answerSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc, mediaSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	donationHandler := handler.NewDonationHandler(donationSvc, joinSvc)
	userHandler := handler.NewUserHandler(userSvc, exportSvc)
	fileHandler := handler.NewFileHandler(signer, blobs, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))
	r.Use(middleware.WithResponseMeta())
	r.MaxMultipartMemory = cfg.Storage.MaxUploadBytes

	tmpl, err := template.New("").Funcs(handler.TemplateFuncs()).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/", homeHandler.Page)
	r.GET("/hadiya", homeHandler.HadiyaPage)
	r.GET("/hadiya/qr/:method", homeHandler.HadiyaQR)
	r.GET("/files/download", fileHandler.Download)
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == config.StorageDriverLocal {
		// Only public buckets; surah PDFs go through /files/download.
		for _, bucket := range []string{storage.BucketLogos, storage.BucketSectionImages} {
			r.Static("/files/"+bucket, filepath.Join(cfg.Storage.BaseDir, bucket))
		}
	}
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.GET("/verify", authHandler.VerifyEmail)
		auth.POST("/verify", authHandler.VerifyEmail)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.OptionalJWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

		api.GET("/home", homeHandler.Home)
		api.GET("/hadiya", homeHandler.Hadiya)
		api.GET("/surahs", surahHandler.PublicList)
		api.GET("/surahs/:number", surahHandler.PublicGet)
		api.POST("/surahs/:number/access", surahHandler.Access)
		api.POST("/donations", donationHandler.Create)
		api.POST("/whatsapp-joins", donationHandler.Join)

		learner := api.Group("")
		learner.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleLearner))
		learner.GET("/me/dashboard", dashboardHandler.Learner)
		learner.PUT("/me/profile", dashboardHandler.UpdateProfile)
		learner.GET("/questions", questionHandler.PublicList)
		learner.POST("/questions/:id/answers", questionHandler.Submit)

		admin := api.Group("/admin")
		admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		admin.GET("/overview", dashboardHandler.Admin)

		admin.GET("/settings", settingsHandler.List)
		admin.PUT("/settings", settingsHandler.Update)
		admin.GET("/settings/:key", settingsHandler.Get)
		admin.POST("/uploads/:bucket", settingsHandler.Upload)

		admin.GET("/sections", sectionHandler.Layout)
		admin.POST("/sections/move", sectionHandler.Move)
		admin.POST("/sections/drag", sectionHandler.Drag)
		admin.POST("/sections/custom", sectionHandler.AddCustom)
		admin.PUT("/sections/custom/:id", sectionHandler.UpdateCustom)
		admin.DELETE("/sections/custom/:id", sectionHandler.RemoveCustom)
		admin.POST("/sections/custom/:id/image", sectionHandler.UploadImage)
		admin.DELETE("/sections/draft", sectionHandler.Discard)
		admin.POST("/sections/save", sectionHandler.Save)

		admin.GET("/surahs", surahHandler.List)
		admin.POST("/surahs", surahHandler.Create)
		admin.GET("/surahs/:id", surahHandler.Get)
		admin.PUT("/surahs/:id", surahHandler.Update)
		admin.PUT("/surahs/:id/exam-link", surahHandler.SetExamLink)
		admin.DELETE("/surahs/:id", surahHandler.Delete)
		admin.POST("/surahs/:id/pdf", surahHandler.UploadPDF)
		admin.DELETE("/surahs/:id/pdf", surahHandler.RemovePDF)

		admin.GET("/questions", questionHandler.List)
		admin.POST("/questions", questionHandler.Create)
		admin.GET("/questions/:id", questionHandler.Get)
		admin.PUT("/questions/:id", questionHandler.Update)
		admin.DELETE("/questions/:id", questionHandler.Delete)
		admin.GET("/submissions", questionHandler.Submissions)
		admin.PUT("/submissions/:id/grade", questionHandler.Grade)

		admin.GET("/donations", donationHandler.List)
		admin.POST("/donations/:id/review", donationHandler.Review)
		admin.GET("/whatsapp-joins", donationHandler.ListJoins)
		admin.POST("/whatsapp-joins/:id/review", donationHandler.ReviewJoin)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/:user_id", userHandler.Get)
		admin.GET("/exports/:kind", middleware.Audit(authRepo, logr, models.AuditActionDataExport, "export"), userHandler.Export)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
