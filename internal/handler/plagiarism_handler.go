package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// PlagiarismHandler exposes batch plagiarism checks.
type PlagiarismHandler struct {
	service service.PlagiarismService
	logger  zerolog.Logger
}

// NewPlagiarismHandler constructs the handler.
func NewPlagiarismHandler(service service.PlagiarismService, logger zerolog.Logger) *PlagiarismHandler {
	return &PlagiarismHandler{
		service: service,
		logger:  logger.With().Str("component", "plagiarism_handler").Logger(),
	}
}

// Register attaches plagiarism endpoints to the router group.
func (h *PlagiarismHandler) Register(router fiber.Router) {
	router.Post("/check", h.check)
}

func (h *PlagiarismHandler) check(c *fiber.Ctx) error {
	var payload dto.PlagiarismCheckRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Check(c.UserContext(), payload)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to check plagiarism")
	}

	return utils.SendSuccess(c, "plagiarism check completed", result)
}
