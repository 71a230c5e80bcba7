package vectorize

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine returns the cosine similarity of two dense vectors, or 0 when either has zero norm or
// the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// CosineSparse returns the cosine similarity of two sparse vectors. Indices must be ascending.
func CosineSparse(a, b Vector) float64 {
	na, nb := floats.Norm(a.Value, 2), floats.Norm(b.Value, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a.Index) && j < len(b.Index) {
		switch {
		case a.Index[i] == b.Index[j]:
			dot += a.Value[i] * b.Value[j]
			i++
			j++
		case a.Index[i] < b.Index[j]:
			i++
		default:
			j++
		}
	}
	return dot / (na * nb)
}

// Matrix is a square symmetric similarity matrix with a unit diagonal and values in [0,1].
type Matrix [][]float64

// SimilarityMatrix computes pairwise cosine similarities of vectors.
func SimilarityMatrix(vectors []Vector) Matrix {
	n := len(vectors)
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := Clamp01(CosineSparse(vectors[i], vectors[j]))
			m[i][j] = sim
			m[j][i] = sim
		}
	}
	return m
}

// Size returns the matrix dimension.
func (m Matrix) Size() int { return len(m) }

// Clamp01 bounds v to [0,1], mapping NaN to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
