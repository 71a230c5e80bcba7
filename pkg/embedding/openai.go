package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Duration of embedding provider requests",
	}, []string{"model"})

	embedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "embedding",
		Name:      "failures_total",
		Help:      "Number of failed embedding provider requests",
	}, []string{"model"})
)

// OpenAIConfig configures the hosted embedding encoder.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// OpenAIEmbedder encodes text through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEmbedder builds the encoder. One instance is meant to be shared process-wide.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader/pkg/embedding/openai"),
		logger: cfg.Logger.With().Str("component", "openai_embedder").Logger(),
	}, nil
}

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string { return e.cfg.Model }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(parent context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	ctx, span := e.tracer.Start(parent, "openai.embed", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("text_length", len(text)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.cfg.Model),
	})
	embedDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		embedFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		err := fmt.Errorf("no embedding returned from openai")
		embedFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	e.logger.Debug().Int("dimensions", len(vec)).Msg("embedding received")
	return vec, nil
}
