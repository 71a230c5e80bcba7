// Package embedding provides dense sentence vectors for semantic answer grading.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed blank text.
var ErrEmptyText = errors.New("cannot embed empty text")

// Embedder encodes a text into a fixed-length dense vector. Implementations must be deterministic
// for a given text and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}
