package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"prepmate/api/internal/config"
	"prepmate/api/internal/engine"
	"prepmate/api/internal/handlers"
	"prepmate/api/internal/metrics"
	"prepmate/api/internal/models"
	"prepmate/api/internal/repositories"
	"prepmate/api/internal/routers"
	"prepmate/api/internal/services"
)

func newRouter(appCfg *config.AppConfig, authHandler *handlers.AuthHandler, interviewHandler *handlers.InterviewHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	// Evaluate calls can take up to the engine's long timeout.
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: appCfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Interview-Token"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	routers.AuthRoutes(r, authHandler)
	routers.UserRoutes(r, authHandler)
	routers.InterviewRoutes(r, interviewHandler)
	return r
}

func newEngineClient(cfg *config.EngineConfig, logger *zap.Logger) engine.Client {
	if cfg.Mock {
		logger.Info("using offline mock interview engine")
		return engine.NewMockClient()
	}
	return engine.NewHTTPClient(cfg, logger)
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appCfg := config.LoadAppConfig()
	engineCfg := config.LoadEngineConfig()

	db, err := gorm.Open(postgres.Open(config.LoadDBConfig().DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.User{}, &models.InterviewSession{}, &models.InterviewTurn{}); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	events := services.NewEventPublisher(appCfg.RedisAddr, logger)
	interviewService := services.NewInterviewService(
		db,
		newEngineClient(engineCfg, logger),
		events,
		logger,
		engineCfg,
		appCfg.EvaluationMode,
	)

	authHandler := handlers.NewAuthHandler(&repositories.UserRepository{DB: db}, appCfg.JWTSecret)
	interviewHandler := handlers.NewInterviewHandler(interviewService, appCfg.JWTSecret)

	r := newRouter(appCfg, authHandler, interviewHandler)

	addr := ":" + appCfg.Port
	logger.Info("interview api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
