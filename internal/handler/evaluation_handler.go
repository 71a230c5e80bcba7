package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// EvaluationHandler exposes stored grading runs.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches evaluation endpoints to the router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	var query dto.EvaluationListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to list evaluations")
	}
	return utils.SendSuccess(c, "evaluations retrieved", result)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load evaluation")
	}
	return utils.SendSuccess(c, "evaluation retrieved", result)
}
