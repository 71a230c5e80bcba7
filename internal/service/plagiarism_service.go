package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/pkg/nlp"
	"github.com/noah-isme/gema-grader/pkg/scoring"
	"github.com/noah-isme/gema-grader/pkg/vectorize"
)

const reasonTooShort = "document has too little usable text after normalization"

// PlagiarismConfig tunes plagiarism checks.
type PlagiarismConfig struct {
	// DefaultThreshold applies when a request carries none. 0 flags every pair; values outside
	// [0,100] fall back to scoring.DefaultThreshold.
	DefaultThreshold  float64
	MinDocumentLength int
	MaxFeatures       int
}

// PlagiarismService compares a batch of documents pairwise.
type PlagiarismService interface {
	Check(ctx context.Context, req dto.PlagiarismCheckRequest) (dto.PlagiarismCheckResponse, error)
}

type plagiarismService struct {
	loader     DocumentLoader
	normalizer *nlp.Normalizer
	validator  *validator.Validate
	cfg        PlagiarismConfig
	logger     zerolog.Logger
}

// NewPlagiarismService constructs the plagiarism service.
func NewPlagiarismService(loader DocumentLoader, normalizer *nlp.Normalizer, validate *validator.Validate, cfg PlagiarismConfig, logger zerolog.Logger) PlagiarismService {
	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 100 {
		cfg.DefaultThreshold = scoring.DefaultThreshold
	}
	if cfg.MinDocumentLength <= 0 {
		cfg.MinDocumentLength = 1
	}
	return &plagiarismService{
		loader:     loader,
		normalizer: normalizer,
		validator:  validate,
		cfg:        cfg,
		logger:     logger.With().Str("component", "plagiarism_service").Logger(),
	}
}

type usableDocument struct {
	index int
	text  string
}

func (s *plagiarismService) Check(ctx context.Context, req dto.PlagiarismCheckRequest) (dto.PlagiarismCheckResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grader/internal/service/plagiarism")
	ctx, span := tracer.Start(ctx, "plagiarism.check")
	span.SetAttributes(attribute.Int("plagiarism.documents", len(req.FileURLs)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.PlagiarismCheckResponse{}, err
	}

	threshold := s.cfg.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if err := scoring.ValidateThreshold(threshold); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "threshold_out_of_range")
		return dto.PlagiarismCheckResponse{}, err
	}

	response := dto.PlagiarismCheckResponse{
		Threshold: threshold,
		Results:   []dto.PlagiarismPair{},
		Skipped:   []dto.SkippedDocument{},
	}

	docs, failures := s.loader.LoadAll(ctx, req.FileURLs)
	failed := make(map[int]struct{}, len(failures))
	for _, f := range failures {
		failed[f.Index] = struct{}{}
		response.Skipped = append(response.Skipped, dto.SkippedDocument{Index: f.Index, Source: f.Source, Reason: f.Reason})
	}

	usable := make([]usableDocument, 0, len(docs))
	for i, doc := range docs {
		if _, skip := failed[i]; skip {
			continue
		}
		normalized := s.normalizer.Normalize(doc.Text)
		if utf8.RuneCountInString(normalized) < s.cfg.MinDocumentLength {
			response.Skipped = append(response.Skipped, dto.SkippedDocument{Index: i, Source: req.FileURLs[i], Reason: reasonTooShort})
			continue
		}
		usable = append(usable, usableDocument{index: i, text: normalized})
	}
	sort.SliceStable(response.Skipped, func(i, j int) bool { return response.Skipped[i].Index < response.Skipped[j].Index })
	observability.SkippedDocuments().Add(float64(len(response.Skipped)))

	logger := s.logger.With().Int("documents", len(req.FileURLs)).Int("usable", len(usable)).Logger()
	if len(usable) < 2 {
		logger.Info().Msg("fewer than two usable documents, nothing to compare")
		span.SetAttributes(attribute.Int("plagiarism.pairs", 0))
		return response, nil
	}

	texts := make([]string, len(usable))
	for i, doc := range usable {
		texts[i] = doc.text
	}
	_, vectors, err := vectorize.FitTransform(texts, vectorize.Options{
		MaxFeatures: s.cfg.MaxFeatures,
		Stopwords:   s.normalizer.Stopwords(),
	})
	if err != nil {
		if errors.Is(err, vectorize.ErrEmptyVocabulary) || errors.Is(err, vectorize.ErrTooFewDocuments) {
			logger.Warn().Err(err).Msg("vectorization produced no comparable vocabulary")
			span.RecordError(err)
			return response, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "vectorization_failed")
		return dto.PlagiarismCheckResponse{}, err
	}

	verdicts, err := scoring.Verdicts(vectorize.SimilarityMatrix(vectors), threshold, req.IncludeAllPairs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verdict_failed")
		return dto.PlagiarismCheckResponse{}, err
	}

	flagged := 0
	for _, v := range verdicts {
		response.Results = append(response.Results, dto.PlagiarismPair{
			File1Index:      usable[v.Doc1].index,
			File2Index:      usable[v.Doc2].index,
			SimilarityScore: v.Similarity,
			IsPlagiarised:   v.Plagiarised,
		})
		observability.PlagiarismPairs().WithLabelValues(strconv.FormatBool(v.Plagiarised)).Inc()
		if v.Plagiarised {
			flagged++
		}
	}

	span.SetAttributes(
		attribute.Int("plagiarism.pairs", len(response.Results)),
		attribute.Int("plagiarism.flagged", flagged),
	)
	logger.Info().Int("pairs", len(response.Results)).Int("flagged", flagged).Msg("plagiarism check completed")

	return response, nil
}
