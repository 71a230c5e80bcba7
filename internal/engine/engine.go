// Package engine assembles the process-wide scoring components shared by the API and the CLI.
package engine

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/pkg/analytics"
	"github.com/noah-isme/gema-grader/pkg/embedding"
	"github.com/noah-isme/gema-grader/pkg/extract"
	"github.com/noah-isme/gema-grader/pkg/nlp"
	"github.com/noah-isme/gema-grader/pkg/scoring"
)

// Engine holds components that are built once and shared across requests.
type Engine struct {
	Normalizer *nlp.Normalizer
	Embedder   embedding.Embedder
	Grader     *scoring.Grader
	Analyzer   *analytics.Analyzer
	Loader     *extract.Loader
}

// New builds the engine. cache may be nil, which disables embedding caching.
func New(cfg config.Config, cache *redis.Client, logger zerolog.Logger) (*Engine, error) {
	opts := []nlp.Option{nlp.WithLogger(logger)}
	lemmatizer, err := nlp.NewEnglishLemmatizer()
	if err != nil {
		logger.Warn().Err(err).Msg("english lemmatizer unavailable, tokens are kept as written")
	} else {
		opts = append(opts, nlp.WithLemmatizer(lemmatizer))
	}
	normalizer := nlp.New(opts...)

	embedder, err := NewEmbedder(cfg, cache, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Normalizer: normalizer,
		Embedder:   embedder,
		Grader:     scoring.NewGrader(normalizer, embedder),
		Analyzer: analytics.NewAnalyzer(analytics.Options{
			ClusterCount: cfg.ClusterCount,
			ClusterSeed:  cfg.ClusterSeed,
			MaxFeatures:  cfg.MaxFeatures,
		}),
		Loader: extract.NewLoader(extract.Config{
			Timeout:     cfg.FetchTimeout,
			Concurrency: cfg.FetchConcurrency,
			MaxBytes:    cfg.MaxDocumentBytes,
			Logger:      logger,
		}),
	}, nil
}

// NewEmbedder selects the embedding provider from configuration and wraps it with the cache.
func NewEmbedder(cfg config.Config, cache *redis.Client, logger zerolog.Logger) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.EmbeddingProvider {
	case "openai":
		if !cfg.UsesOpenAI() {
			logger.Warn().Msg("openai embedding provider selected without an api key, using local embeddings")
			base = embedding.NewHashingEmbedder(0)
			break
		}
		openaiEmbedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.EmbeddingTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}
		base = openaiEmbedder
	case "local", "":
		base = embedding.NewHashingEmbedder(0)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}

	return embedding.NewCachedEmbedder(base, cache, cfg.EmbeddingCacheTTL, logger), nil
}
