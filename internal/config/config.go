package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	NATSSubject    string

	EmbeddingProvider string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	EmbeddingModel    string
	EmbeddingTimeout  time.Duration
	EmbeddingCacheTTL time.Duration

	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxDocumentBytes int64

	DefaultThreshold  float64
	MinDocumentLength int
	MaxFeatures       int
	ClusterCount      int
	ClusterSeed       uint64

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UsesOpenAI reports whether semantic scoring should call the OpenAI embeddings API.
func (c Config) UsesOpenAI() bool {
	return c.EmbeddingProvider == "openai" && c.OpenAIAPIKey != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:grader.db?cache=shared")
	v.SetDefault("nats.subject", "grading.completed")
	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.timeout", "10s")
	v.SetDefault("embedding.cache_ttl", "24h")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.max_bytes", 32<<20)
	v.SetDefault("plagiarism.threshold", 75.0)
	v.SetDefault("plagiarism.min_length", 1)
	v.SetDefault("vectorize.max_features", 5000)
	v.SetDefault("analytics.clusters", 5)
	v.SetDefault("analytics.seed", 42)
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"embedding.timeout", "embedding.cache_ttl", "fetch.timeout", "rate_limit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseDriver:    strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubject:       v.GetString("nats.subject"),
		EmbeddingProvider: strings.ToLower(v.GetString("embedding.provider")),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIBaseURL:     v.GetString("openai_base_url"),
		EmbeddingModel:    v.GetString("embedding.model"),
		EmbeddingTimeout:  durations["embedding.timeout"],
		EmbeddingCacheTTL: durations["embedding.cache_ttl"],
		FetchTimeout:      durations["fetch.timeout"],
		FetchConcurrency:  v.GetInt("fetch.concurrency"),
		MaxDocumentBytes:  v.GetInt64("fetch.max_bytes"),
		DefaultThreshold:  v.GetFloat64("plagiarism.threshold"),
		MinDocumentLength: v.GetInt("plagiarism.min_length"),
		MaxFeatures:       v.GetInt("vectorize.max_features"),
		ClusterCount:      v.GetInt("analytics.clusters"),
		ClusterSeed:       v.GetUint64("analytics.seed"),
		RateLimitMax:      v.GetInt("rate_limit.max"),
		RateLimitWindow:   durations["rate_limit.window"],
	}

	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 100 {
		return Config{}, fmt.Errorf("plagiarism threshold must be between 0 and 100, got %v", cfg.DefaultThreshold)
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite", "none":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}

	if cfg.MinDocumentLength < 0 {
		cfg.MinDocumentLength = 0
	}

	return cfg, nil
}
