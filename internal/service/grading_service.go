package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/pkg/scoring"
	"github.com/noah-isme/gema-grader/pkg/segment"
)

// ErrEmptyAnswerKey indicates the reference document has no gradable content.
var ErrEmptyAnswerKey = errors.New("answer key contains no questions")

// ErrDocumentUnreadable indicates a document source could not be loaded at all.
var ErrDocumentUnreadable = errors.New("document could not be read")

// GradingConfig tunes grading runs.
type GradingConfig struct {
	EmbeddingTimeout time.Duration
	EventSubject     string
}

// GradingService scores a submission against its answer key question by question.
type GradingService interface {
	Evaluate(ctx context.Context, req dto.GradingRequest) (dto.GradingResponse, error)
}

type gradingService struct {
	grader    *scoring.Grader
	loader    DocumentLoader
	repo      repository.EvaluationRepository
	publisher EventPublisher
	validator *validator.Validate
	cfg       GradingConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading service. repo and publisher may be nil, in which case
// runs are neither persisted nor announced.
func NewGradingService(grader *scoring.Grader, loader DocumentLoader, repo repository.EvaluationRepository, publisher EventPublisher, validate *validator.Validate, cfg GradingConfig, logger zerolog.Logger) GradingService {
	if cfg.EmbeddingTimeout <= 0 {
		cfg.EmbeddingTimeout = 10 * time.Second
	}
	return &gradingService{
		grader:    grader,
		loader:    loader,
		repo:      repo,
		publisher: publisher,
		validator: validate,
		cfg:       cfg,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

func (s *gradingService) Evaluate(ctx context.Context, req dto.GradingRequest) (dto.GradingResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.evaluate")
	span.SetAttributes(attribute.String("grading.label", req.Label))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingResponse{}, err
	}

	studentText, err := s.resolve(ctx, req.StudentDocument, req.StudentSource)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "student_document_unreadable")
		return dto.GradingResponse{}, err
	}
	referenceText, err := s.resolve(ctx, req.ReferenceDocument, req.ReferenceSource)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference_document_unreadable")
		return dto.GradingResponse{}, err
	}

	reference := segment.Split(referenceText)
	submission := segment.Split(studentText)
	if len(reference) == 0 {
		reference = segment.SplitLines(referenceText)
		submission = segment.SplitLines(studentText)
	}
	if len(reference) == 0 {
		span.SetStatus(codes.Error, "empty_answer_key")
		return dto.GradingResponse{}, ErrEmptyAnswerKey
	}

	logger := s.logger.With().Str("student", req.StudentName).Str("label", req.Label).Logger()

	pairs, mismatch := segment.Align(reference, submission)
	warnings := []string{}
	if mismatch != nil {
		warnings = append(warnings, mismatch.String())
		logger.Warn().
			Int("reference_count", mismatch.ReferenceCount).
			Int("submission_count", mismatch.SubmissionCount).
			Msg("question count mismatch, reference used as ground truth")
	}

	results := make([]dto.QuestionResult, 0, len(pairs))
	total := 0.0
	for _, pair := range pairs {
		record := s.score(ctx, pair)
		if record.Err != nil {
			logger.Warn().Err(record.Err).Int("question", record.Question).Msg("question could not be scored")
			span.RecordError(record.Err)
		}
		observability.GradedQuestions().WithLabelValues(record.Status).Inc()
		total += record.Score
		results = append(results, questionResult(record))
	}

	maxScore := scoring.MaxScore * float64(len(results))
	response := dto.GradingResponse{
		StudentName: strings.TrimSpace(req.StudentName),
		Label:       strings.TrimSpace(req.Label),
		TotalScore:  scoring.Round(total, 2),
		MaxScore:    maxScore,
		Percentage:  scoring.Round(total/maxScore*100, 2),
		Model:       s.grader.Model(),
		Results:     results,
		Warnings:    warnings,
		CreatedAt:   s.now().UTC(),
	}

	if s.repo != nil {
		if err := s.persist(ctx, &response); err != nil {
			logger.Error().Err(err).Msg("failed to persist evaluation")
			span.RecordError(err)
			span.SetStatus(codes.Error, "evaluation_persist_failed")
			return dto.GradingResponse{}, err
		}
		s.announce(ctx, response)
	}

	span.SetAttributes(
		attribute.Int("grading.questions", len(results)),
		attribute.Float64("grading.total_score", response.TotalScore),
	)
	logger.Info().
		Int("questions", len(results)).
		Float64("total_score", response.TotalScore).
		Msg("grading run completed")

	return response, nil
}

func (s *gradingService) score(ctx context.Context, pair segment.AnswerPair) scoring.Record {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EmbeddingTimeout)
	defer cancel()
	return s.grader.Score(ctx, pair)
}

func (s *gradingService) resolve(ctx context.Context, inline, source string) (string, error) {
	if strings.TrimSpace(inline) != "" || strings.TrimSpace(source) == "" {
		return inline, nil
	}
	if s.loader == nil {
		return "", fmt.Errorf("%w: no document loader configured", ErrDocumentUnreadable)
	}
	doc, err := s.loader.Load(ctx, source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}
	return doc.Text, nil
}

func (s *gradingService) persist(ctx context.Context, response *dto.GradingResponse) error {
	evaluation := models.Evaluation{
		ID:            uuid.NewString(),
		Label:         response.Label,
		StudentName:   response.StudentName,
		TotalScore:    response.TotalScore,
		MaxScore:      response.MaxScore,
		Percentage:    response.Percentage,
		QuestionCount: len(response.Results),
		Model:         response.Model,
		CreatedAt:     response.CreatedAt,
	}

	stored := make([]models.EvaluationResult, 0, len(response.Results))
	for _, r := range response.Results {
		stored = append(stored, models.EvaluationResult{
			Question:        r.Question,
			Score:           r.Score,
			Similarity:      r.Similarity,
			Topic:           r.Topic,
			Status:          r.Status,
			StudentAnswer:   r.StudentAnswer,
			ReferenceAnswer: r.ReferenceAnswer,
			Feedback:        r.Feedback,
			Error:           r.Error,
		})
	}
	evaluation.SetResults(stored)
	evaluation.SetWarnings(response.Warnings)

	if err := s.repo.Create(ctx, &evaluation); err != nil {
		return err
	}
	response.EvaluationID = evaluation.ID
	return nil
}

func (s *gradingService) announce(ctx context.Context, response dto.GradingResponse) {
	if s.publisher == nil || s.cfg.EventSubject == "" {
		return
	}
	payload, err := json.Marshal(dto.GradingCompletedEvent{
		EvaluationID:  response.EvaluationID,
		StudentName:   response.StudentName,
		Label:         response.Label,
		TotalScore:    response.TotalScore,
		MaxScore:      response.MaxScore,
		QuestionCount: len(response.Results),
		CompletedAt:   response.CreatedAt,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode grading event")
		return
	}
	if err := s.publisher.Publish(s.cfg.EventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("evaluation_id", response.EvaluationID).Msg("failed to publish grading event")
	}
}

func questionResult(record scoring.Record) dto.QuestionResult {
	result := dto.QuestionResult{
		Question:        record.Question,
		Score:           record.Score,
		Similarity:      record.Similarity,
		Topic:           record.Topic,
		Status:          record.Status,
		StudentAnswer:   record.StudentAnswer,
		ReferenceAnswer: record.ReferenceAnswer,
		Feedback:        record.Feedback,
	}
	if result.Feedback == nil {
		result.Feedback = []string{}
	}
	if record.Err != nil {
		result.Error = record.Err.Error()
	}
	return result
}
