package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/controller"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/pkg/database"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"exam_prep_backend/pkg/security"
	"exam_prep_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	services  *services
	scheduler *gocron.Scheduler
}

type repositories struct {
	user     *repository.UserRepository
	paper    *repository.PaperRepository
	snapshot *repository.SnapshotRepository
	attempt  *repository.AttemptRepository
	answer   *repository.AnswerRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	quota     *service.QuotaService
	webhook   *service.WebhookService
	dashboard *service.DashboardService
	snapshot  *service.SnapshotService
	paper     *service.PaperService
	attempt   *service.AttemptService
	export    *service.ExportService
}

type controllers struct {
	auth      *controller.AuthController
	paper     *controller.PaperController
	attempt   *controller.AttemptController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		paper:    repository.NewPaperRepository(db),
		snapshot: repository.NewSnapshotRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		answer:   repository.NewAnswerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.quota = service.NewQuotaService(repos.paper, repos.attempt, cfg.Quota)
	s.webhook = service.NewWebhookService(cfg.Webhook, cfg.Server.Mode)
	s.dashboard = service.NewDashboardService(repos.paper, repos.attempt, s.webhook)

	source := service.NewQuestionSourceClient(cfg.QuestionSource)
	s.snapshot = service.NewSnapshotService(repos.snapshot, repos.paper, source, rdb)

	s.paper = service.NewPaperService(repos.paper, repos.snapshot, s.quota, s.dashboard)
	s.attempt = service.NewAttemptService(
		repos.attempt,
		repos.answer,
		repos.paper,
		repos.snapshot,
		s.quota,
		s.snapshot,
		s.dashboard,
		s.webhook,
	)
	s.export = service.NewExportService(repos.attempt, repos.paper, s.quota, s.storage)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		paper:     controller.NewPaperController(s.paper),
		attempt:   controller.NewAttemptController(s.attempt, s.export),
		dashboard: controller.NewDashboardController(s.dashboard),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 启动超时答卷的定时清扫任务
func (a *App) startBackgroundTasks(s *services) {
	a.scheduler = gocron.NewScheduler(time.Local)
	a.scheduler.Every(1).Minute().Do(func() {
		if err := s.attempt.ExpireOverdue(); err != nil {
			logger.Log.Error("expire overdue attempts failed", zap.Error(err))
		}
	})
	a.scheduler.StartAsync()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Failed to initialize redis, snapshot locking degraded", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-prep", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
		router.Static("/api/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
