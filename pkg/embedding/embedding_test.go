package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/pkg/vectorize"
)

type countingEmbedder struct {
	calls atomic.Int32
	inner Embedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Model() string { return c.inner.Model() }

func TestHashingEmbedderIsDeterministic(t *testing.T) {
	e := NewHashingEmbedder(0)

	a, err := e.Embed(context.Background(), "mitochondria powerhouse cell")
	require.NoError(t, err)
	b, err := NewHashingEmbedder(DefaultHashingDimensions).Embed(context.Background(), "mitochondria powerhouse cell")
	require.NoError(t, err)

	require.Len(t, a, DefaultHashingDimensions)
	require.Equal(t, a, b)
	require.InDelta(t, 1.0, vectorize.Cosine(a, b), 1e-9)
}

func TestHashingEmbedderRanksRelatedTextHigher(t *testing.T) {
	e := NewHashingEmbedder(0)
	ctx := context.Background()

	ref, err := e.Embed(ctx, "mitochondria produce energy cell")
	require.NoError(t, err)
	near, err := e.Embed(ctx, "mitochondria produces energy")
	require.NoError(t, err)
	far, err := e.Embed(ctx, "volcano erupt lava")
	require.NoError(t, err)

	require.Greater(t, vectorize.Cosine(ref, near), vectorize.Cosine(ref, far))
}

func TestHashingEmbedderRejectsEmptyText(t *testing.T) {
	_, err := NewHashingEmbedder(8).Embed(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestOpenAIEmbedder(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		require.Equal(t, []string{"photosynthesis light"}, body.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,-0.125]}],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Equal(t, "text-embedding-3-small", e.Model())

	vec, err := e.Embed(context.Background(), "photosynthesis light")
	require.NoError(t, err)
	require.Equal(t, "text-embedding-3-small", gotModel)
	require.Equal(t, []float64{0.5, 0.25, -0.125}, vec)
}

func TestOpenAIEmbedderProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai embed")

	_, err = e.Embed(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	require.Error(t, err)
}

func TestCachedEmbedderReusesVectors(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	cached := NewCachedEmbedder(inner, client, time.Minute, zerolog.Nop())
	require.Equal(t, "local-hashing", cached.Model())

	first, err := cached.Embed(context.Background(), "energy transfer")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "energy transfer")
	require.NoError(t, err)

	require.Equal(t, int32(1), inner.calls.Load())
	require.InDeltaSlice(t, first, second, 1e-12)
	require.Len(t, server.Keys(), 1)
}

func TestCachedEmbedderBypassesBrokenCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	server.Close()

	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	cached := NewCachedEmbedder(inner, client, time.Minute, zerolog.Nop())

	vec, err := cached.Embed(context.Background(), "energy")
	require.NoError(t, err)
	require.Len(t, vec, 16)
}

func TestNewCachedEmbedderWithoutClient(t *testing.T) {
	inner := NewHashingEmbedder(8)
	require.Same(t, inner, NewCachedEmbedder(inner, nil, time.Minute, zerolog.Nop()))
}
