package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedEmbedder memoises vectors of another Embedder in Redis, keyed by model and text digest.
// Cache failures never fail an embedding; they are logged and bypassed.
type CachedEmbedder struct {
	next   Embedder
	cache  *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewCachedEmbedder wraps next. A nil client disables caching and returns next unchanged.
func NewCachedEmbedder(next Embedder, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) Embedder {
	if cache == nil {
		return next
	}
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		prefix: "embedding:" + next.Model() + ":",
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

// Model implements Embedder.
func (c *CachedEmbedder) Model() string { return c.next.Model() }

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := c.key(text)

	cached, err := c.cache.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float64
		if unmarshalErr := json.Unmarshal(cached, &vec); unmarshalErr == nil && len(vec) > 0 {
			return vec, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Msg("failed to read embedding cache")
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(vec)
	if err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to store embedding cache")
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}
