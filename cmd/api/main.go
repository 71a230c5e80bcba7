package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/engine"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/router"
	"github.com/noah-isme/gema-grader/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	checks := map[string]handler.HealthCheckFunc{}

	var evaluations repository.EvaluationRepository
	if db != nil {
		if err := db.AutoMigrate(&models.Evaluation{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		evaluations = repository.NewEvaluationRepository(db)
		if sqlDB, err := db.DB(); err == nil {
			checks["database"] = sqlDB.PingContext
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, embedding cache disabled")
		} else {
			defer redisClient.Close()
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
		} else {
			defer natsConn.Drain()
			publisher = natsConn
			checks["nats"] = func(context.Context) error {
				if !natsConn.IsConnected() {
					return nats.ErrConnectionClosed
				}
				return nil
			}
		}
	}

	eng, err := engine.New(cfg, redisClient, logger)
	if err != nil {
		log.Fatalf("failed to build scoring engine: %v", err)
	}

	validate := dto.NewValidator()

	gradingService := service.NewGradingService(eng.Grader, eng.Loader, evaluations, publisher, validate, service.GradingConfig{
		EmbeddingTimeout: cfg.EmbeddingTimeout,
		EventSubject:     cfg.NATSSubject,
	}, logger)
	plagiarismService := service.NewPlagiarismService(eng.Loader, eng.Normalizer, validate, service.PlagiarismConfig{
		DefaultThreshold:  cfg.DefaultThreshold,
		MinDocumentLength: cfg.MinDocumentLength,
		MaxFeatures:       cfg.MaxFeatures,
	}, logger)
	analyticsService := service.NewAnalyticsService(eng.Analyzer, evaluations, validate, logger)
	evaluationService := service.NewEvaluationService(evaluations, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxDocumentBytes) * 2,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		PlagiarismHandler: handler.NewPlagiarismHandler(plagiarismService, logger),
		AnalyticsHandler:  handler.NewAnalyticsHandler(analyticsService, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, logger),
		Health: handler.HealthInfo{
			EmbeddingModel: eng.Embedder.Model(),
			Storage:        evaluations != nil,
			Checks:         checks,
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
