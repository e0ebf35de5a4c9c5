package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_market_backend/internal/config"
	"course_market_backend/internal/controller"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/service"
	"course_market_backend/pkg/configwatcher"
	"course_market_backend/pkg/database"
	"course_market_backend/pkg/logger"
	"course_market_backend/pkg/monitoring"
	"course_market_backend/pkg/security"
	"course_market_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services

	cancelBackground context.CancelFunc
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	section    *repository.SectionRepository
	lesson     *repository.LessonRepository
	content    *repository.ContentRepository
	draft      *repository.DraftRepository
	enrollment *repository.EnrollmentRepository
	orphan     *repository.OrphanAssetRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	videoHost  *service.VideoHostService
	cleanup    *service.CleanupService
	upload     *service.UploadService
	course     *service.CourseService
	draft      *service.DraftService
	catalog    *service.CatalogService
	enrollment *service.EnrollmentService
	reconcile  *service.ReconcileService
	review     *service.ReviewService
}

type controllers struct {
	auth       *controller.AuthController
	catalog    *controller.CatalogController
	course     *controller.CourseController
	draft      *controller.DraftController
	upload     *controller.UploadController
	enrollment *controller.EnrollmentController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		section:    repository.NewSectionRepository(db),
		lesson:     repository.NewLessonRepository(db),
		content:    repository.NewContentRepository(db),
		draft:      repository.NewDraftRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		orphan:     repository.NewOrphanAssetRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	host := service.NewHTTPVideoHost(cfg.VideoHost)
	s.videoHost = service.NewVideoHostService(host, cfg.VideoHost)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.cleanup = service.NewCleanupService(repos.orphan, s.storage, host)
	s.upload = service.NewUploadService(cfg, s.storage, host, rdb)
	s.course = service.NewCourseService(repos.course, repos.section, repos.lesson, repos.content, repos.draft)
	s.draft = service.NewDraftService(repos.draft, repos.course, repos.section, repos.lesson, repos.content, s.cleanup)
	s.catalog = service.NewCatalogService(repos.course, repos.section, repos.lesson, repos.user)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course, repos.user, repos.content, s.course, s.videoHost, s.storage)
	s.reconcile = service.NewReconcileService(db)
	s.review = service.NewReviewService(repos.draft, repos.course, s.reconcile, s.cleanup)

	return s, nil
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		catalog:    controller.NewCatalogController(s.catalog),
		course:     controller.NewCourseController(s.course),
		draft:      controller.NewDraftController(s.draft, s.upload),
		upload:     controller.NewUploadController(s.upload),
		enrollment: controller.NewEnrollmentController(s.enrollment),
		admin:      controller.NewAdminController(s.review, s.cleanup, repos.orphan),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests == 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window == 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	// 孤儿资产后台重试
	s.cleanup.StartRetryLoop(ctx, a.Config.VideoHost.CleanupPeriod)

	// 配置热更新：就地覆盖配置对象，持有指针的中间件下个请求即生效
	go configwatcher.WatchConfig("configs/config.yaml", a.Config, func(cfg interface{}) {
		if newCfg, ok := cfg.(*config.Config); ok {
			*a.Config = *newCfg
		}
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, repos, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("course-market", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	app.cancelBackground = cancel
	app.startBackgroundTasks(bgCtx, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.cancelBackground != nil {
		a.cancelBackground()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
