package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler    *handler.GradingHandler
	PlagiarismHandler *handler.PlagiarismHandler
	AnalyticsHandler  *handler.AnalyticsHandler
	EvaluationHandler *handler.EvaluationHandler
	Health            handler.HealthInfo
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	health := deps.Health
	if health.Service == "" {
		health.Service = cfg.AppName
	}
	if health.Environment == "" {
		health.Environment = cfg.AppEnv
	}
	api.Get("/health", handler.HealthCheck(health))

	if deps.PlagiarismHandler != nil {
		plagiarism := api.Group("/plagiarism", middleware.RateLimit("plagiarism", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.PlagiarismHandler.Register(plagiarism)
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", middleware.RateLimit("grading", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.GradingHandler.Register(grading)
	}

	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(api.Group("/analytics"))
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations"))
	}
}
