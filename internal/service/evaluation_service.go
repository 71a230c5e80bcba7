package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/repository"
)

// ErrEvaluationNotFound indicates the grading run does not exist.
var ErrEvaluationNotFound = errors.New("evaluation not found")

const defaultEvaluationPageSize = 20

// EvaluationService reads persisted grading runs.
type EvaluationService interface {
	Get(ctx context.Context, id string) (dto.GradingResponse, error)
	List(ctx context.Context, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error)
}

type evaluationService struct {
	repo      repository.EvaluationRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationService constructs the evaluation read service. repo may be nil.
func NewEvaluationService(repo repository.EvaluationRepository, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Get(ctx context.Context, id string) (dto.GradingResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.get")
	span.SetAttributes(attribute.String("evaluation.id", id))
	defer span.End()

	if s.repo == nil {
		return dto.GradingResponse{}, ErrStorageDisabled
	}

	evaluation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "evaluation_not_found")
			return dto.GradingResponse{}, ErrEvaluationNotFound
		}
		span.SetStatus(codes.Error, "evaluation_lookup_failed")
		return dto.GradingResponse{}, err
	}

	return dto.NewGradingResponseFromModel(evaluation), nil
}

func (s *evaluationService) List(ctx context.Context, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.list")
	defer span.End()

	if s.repo == nil {
		return dto.EvaluationListResponse{}, ErrStorageDisabled
	}
	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EvaluationListResponse{}, err
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultEvaluationPageSize
	}

	items, total, err := s.repo.List(ctx, repository.EvaluationFilter{
		Label:       req.Label,
		StudentName: req.StudentName,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_list_failed")
		return dto.EvaluationListResponse{}, err
	}

	response := dto.EvaluationListResponse{
		Items:      make([]dto.EvaluationSummary, 0, len(items)),
		Pagination: dto.PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total},
	}
	for _, item := range items {
		response.Items = append(response.Items, dto.NewEvaluationSummary(item))
	}
	span.SetAttributes(attribute.Int64("evaluation.total", total))

	return response, nil
}
