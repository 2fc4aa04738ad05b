package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduquiz_backend/internal/config"
	"eduquiz_backend/internal/controller"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/service"
	"eduquiz_backend/pkg/configwatcher"
	"eduquiz_backend/pkg/database"
	"eduquiz_backend/pkg/logger"
	"eduquiz_backend/pkg/monitoring"
	"eduquiz_backend/pkg/security"
	"eduquiz_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	configCallbacks []func(*config.Config)
	tracerProvider  *sdktrace.TracerProvider
}

type repositories struct {
	user       *repository.UserRepository
	quiz       *repository.QuizRepository
	progress   *repository.ProgressRepository
	attempt    *repository.AttemptRepository
	assistance *repository.AssistanceRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	availability *service.AvailabilityService
	progress     *service.ProgressService
	quiz         *service.QuizService
	assistance   *service.AssistanceService
}

type controllers struct {
	auth       *controller.AuthController
	quiz       *controller.QuizController
	progress   *controller.ProgressController
	assistance *controller.AssistanceController
	teacher    *controller.TeacherController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		quiz:       repository.NewQuizRepository(db),
		progress:   repository.NewProgressRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		assistance: repository.NewAssistanceRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)

	s.availability = service.NewAvailabilityService(
		repos.quiz, rdb, time.Duration(cfg.Quiz.AvailabilityTTL)*time.Second)

	s.progress = service.NewProgressService(
		repos.progress, repos.attempt, s.availability, cfg.Quiz.DefaultMaxAttempts)

	s.quiz = service.NewQuizService(repos.quiz, repos.attempt, s.progress, s.availability.Invalidate)
	s.assistance = service.NewAssistanceService(
		repos.assistance, repos.quiz, repos.attempt, s.progress, s.availability.Invalidate)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		quiz:       controller.NewQuizController(s.quiz),
		progress:   controller.NewProgressController(s.progress),
		assistance: controller.NewAssistanceController(s.assistance),
		teacher:    controller.NewTeacherController(s.progress, repos.attempt),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, repos, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("eduquiz-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		// 进程退出前由 Run 统一关停，保证批量导出的 span 落地
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	// 配置热更新：测验默认参数无需重启即可调整
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.progress.DefaultMaxAttempts = newCfg.Quiz.DefaultMaxAttempts
		logger.Log.Info("Config reloaded",
			zap.Int("default_max_attempts", newCfg.Quiz.DefaultMaxAttempts))
	})
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(reloaded interface{}) {
		newCfg, ok := reloaded.(*config.Config)
		if !ok {
			return
		}
		for _, cb := range app.configCallbacks {
			cb(newCfg)
		}
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
