package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/utils"
	"github.com/noah-isme/gema-grader/pkg/analytics"
	"github.com/noah-isme/gema-grader/pkg/extract"
	"github.com/noah-isme/gema-grader/pkg/scoring"
)

const maxUploadBytes = 32 << 20

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// handleError maps service errors onto the response envelope.
func handleError(c *fiber.Ctx, logger *zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.Is(err, scoring.ErrThresholdOutOfRange),
		errors.Is(err, analytics.ErrMissingColumns),
		errors.Is(err, analytics.ErrScoreOutOfRange),
		errors.Is(err, service.ErrEmptyAnswerKey):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, analytics.ErrNoData):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, analytics.NoDataMessage)
	case errors.Is(err, service.ErrDocumentUnreadable),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > maxUploadBytes {
		return nil, fmt.Errorf("%s: %w", header.Filename, extract.ErrTooLarge)
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}

func uploadText(c *fiber.Ctx, field string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s file is required", field)
	}
	raw, err := readUpload(header)
	if err != nil {
		return "", err
	}
	text, err := extract.Text(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return text, nil
}
