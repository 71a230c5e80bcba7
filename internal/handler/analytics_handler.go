package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// AnalyticsHandler exposes class performance analytics.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches analytics endpoints to the router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Post("/class", h.analyzeClass)
	router.Get("/evaluations", h.analyzeStored)
}

func (h *AnalyticsHandler) analyzeClass(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	if isMultipart(c) {
		header, err := c.FormFile("file")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file is required")
		}
		file, err := header.Open()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}
		defer file.Close()

		result, err := h.service.AnalyzeCSV(c.UserContext(), file)
		if err != nil {
			return handleError(c, logger, err, "failed to analyze class")
		}
		return utils.SendSuccess(c, "class analysis completed", result)
	}

	var payload dto.ClassAnalyticsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Analyze(c.UserContext(), payload)
	if err != nil {
		return handleError(c, logger, err, "failed to analyze class")
	}
	return utils.SendSuccess(c, "class analysis completed", result)
}

func (h *AnalyticsHandler) analyzeStored(c *fiber.Ctx) error {
	result, err := h.service.AnalyzeStored(c.UserContext(), c.Query("label"))
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to analyze evaluations")
	}
	return utils.SendSuccess(c, "class analysis completed", result)
}
