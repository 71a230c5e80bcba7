package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// GradingHandler exposes answer sheet grading.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/evaluate", h.evaluate)
}

func (h *GradingHandler) evaluate(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.GradingRequest
	if isMultipart(c) {
		student, err := uploadText(c, "student_file")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		reference, err := uploadText(c, "answer_key")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		payload = dto.GradingRequest{
			StudentDocument:   student,
			ReferenceDocument: reference,
			StudentName:       c.FormValue("student_name"),
			Label:             c.FormValue("label"),
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Evaluate(c.UserContext(), payload)
	if err != nil {
		return handleError(c, logger, err, "failed to grade submission")
	}

	logger.Info().Float64("total_score", result.TotalScore).Int("questions", len(result.Results)).Msg("submission graded")
	return utils.SendSuccess(c, "submission graded", result)
}
