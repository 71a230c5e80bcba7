package embedding

import (
	"context"
	"hash/fnv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultHashingDimensions matches the width of common MiniLM sentence encoders.
const DefaultHashingDimensions = 384

// HashingEmbedder is a local encoder built on feature hashing of word unigrams and
// character trigrams. It is used when no hosted embedding provider is configured.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder returns a HashingEmbedder producing dims-wide vectors.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Model implements Embedder.
func (h *HashingEmbedder) Model() string { return "local-hashing" }

// Embed implements Embedder.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float64, h.dims)
	for _, word := range words {
		h.add(vec, "w:"+word, 1.0)
		padded := []rune("#" + word + "#")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "c:"+string(padded[i:i+3]), 0.5)
		}
	}

	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec, nil
}

func (h *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
