package service

import (
	"context"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/pkg/analytics"
)

// ErrStorageDisabled indicates an operation needs persisted evaluations but no database is configured.
var ErrStorageDisabled = errors.New("evaluation storage is not configured")

// AnalyticsService builds class-level performance snapshots.
type AnalyticsService interface {
	Analyze(ctx context.Context, req dto.ClassAnalyticsRequest) (dto.ClassAnalyticsResponse, error)
	AnalyzeCSV(ctx context.Context, reader io.Reader) (dto.ClassAnalyticsResponse, error)
	AnalyzeStored(ctx context.Context, label string) (dto.ClassAnalyticsResponse, error)
}

type analyticsService struct {
	analyzer  *analytics.Analyzer
	repo      repository.EvaluationRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAnalyticsService constructs the analytics service. repo may be nil.
func NewAnalyticsService(analyzer *analytics.Analyzer, repo repository.EvaluationRepository, validate *validator.Validate, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		analyzer:  analyzer,
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "analytics_service").Logger(),
	}
}

func (s *analyticsService) Analyze(ctx context.Context, req dto.ClassAnalyticsRequest) (dto.ClassAnalyticsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassAnalyticsResponse{}, err
	}
	return s.run(ctx, "analytics.analyze", dto.RowsFromRequest(req.Rows))
}

func (s *analyticsService) AnalyzeCSV(ctx context.Context, reader io.Reader) (dto.ClassAnalyticsResponse, error) {
	rows, err := analytics.ReadCSV(reader)
	if err != nil {
		return dto.ClassAnalyticsResponse{}, err
	}
	return s.run(ctx, "analytics.analyze_csv", rows)
}

func (s *analyticsService) AnalyzeStored(ctx context.Context, label string) (dto.ClassAnalyticsResponse, error) {
	if s.repo == nil {
		return dto.ClassAnalyticsResponse{}, ErrStorageDisabled
	}

	evaluations, err := s.repo.ListAll(ctx, label)
	if err != nil {
		return dto.ClassAnalyticsResponse{}, err
	}

	rows := make([]analytics.Row, 0, len(evaluations))
	for _, evaluation := range evaluations {
		for _, r := range evaluation.ResultList() {
			rows = append(rows, analytics.NormalizeRow(analytics.Row{
				StudentName:     evaluation.StudentName,
				Score:           r.Score,
				Topic:           r.Topic,
				StudentAnswer:   r.StudentAnswer,
				ReferenceAnswer: r.ReferenceAnswer,
			}))
		}
	}
	return s.run(ctx, "analytics.analyze_stored", rows)
}

func (s *analyticsService) run(ctx context.Context, operation string, rows []analytics.Row) (dto.ClassAnalyticsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/analytics")
	_, span := tracer.Start(ctx, operation)
	span.SetAttributes(attribute.Int("analytics.rows", len(rows)))
	defer span.End()

	analysis, err := s.analyzer.Analyze(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis_failed")
		return dto.ClassAnalyticsResponse{}, err
	}
	observability.AnalyticsRows().Add(float64(len(rows)))

	if analysis.Clusters.Status == analytics.ClusterStatusFailed {
		s.logger.Warn().Str("reason", analysis.Clusters.Reason).Msg("topic clustering failed")
	}
	span.SetAttributes(attribute.String("analytics.cluster_status", analysis.Clusters.Status))
	s.logger.Info().
		Int("rows", len(rows)).
		Int("students", analysis.Overall.TotalStudents).
		Msg("class analysis completed")

	return dto.NewClassAnalyticsResponse(analysis), nil
}
