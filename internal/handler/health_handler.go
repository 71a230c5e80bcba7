package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/utils"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheckFunc checks one backing dependency.
type HealthCheckFunc func(ctx context.Context) error

// HealthInfo describes the running service for the health endpoint.
type HealthInfo struct {
	Service        string
	Environment    string
	EmbeddingModel string
	Storage        bool
	Checks         map[string]HealthCheckFunc
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Service        string            `json:"service"`
	Environment    string            `json:"environment"`
	EmbeddingModel string            `json:"embedding_model"`
	Storage        bool              `json:"storage"`
	Components     map[string]string `json:"components"`
}

// HealthCheck runs every check and answers 503 when any of them fails.
func HealthCheck(info HealthInfo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:         "ok",
			Timestamp:      time.Now().UTC(),
			Service:        info.Service,
			Environment:    info.Environment,
			EmbeddingModel: info.EmbeddingModel,
			Storage:        info.Storage,
			Components:     make(map[string]string, len(info.Checks)),
		}

		for name, check := range info.Checks {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				payload.Status = "degraded"
				payload.Components[name] = err.Error()
				continue
			}
			payload.Components[name] = "up"
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
