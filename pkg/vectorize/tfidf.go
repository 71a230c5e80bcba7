// Package vectorize implements the lexical vector space and cosine similarity primitives.
package vectorize

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/noah-isme/gema-grader/pkg/nlp"
)

// ErrTooFewDocuments is returned when a vector space is fitted on fewer than two documents.
var ErrTooFewDocuments = errors.New("at least two documents are required to fit a vector space")

// ErrEmptyVocabulary is returned when no term survives filtering.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stopwords or short tokens")

const (
	// DefaultMaxFeatures caps the fitted vocabulary.
	DefaultMaxFeatures = 5000
	// DefaultMinTokenLength drops single character tokens.
	DefaultMinTokenLength = 2
)

var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Options tunes a fit.
type Options struct {
	MaxFeatures    int
	MinTokenLength int
	Stopwords      nlp.StopwordSet
}

func (o Options) withDefaults() Options {
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = DefaultMaxFeatures
	}
	if o.MinTokenLength <= 0 {
		o.MinTokenLength = DefaultMinTokenLength
	}
	if o.Stopwords == nil {
		o.Stopwords = nlp.EnglishStopwords()
	}
	return o
}

// Vector is a sparse L2-normalised term vector with ascending indices.
type Vector struct {
	Index []int
	Value []float64
}

// Len reports the number of non-zero entries.
func (v Vector) Len() int { return len(v.Index) }

// Space is a fitted vocabulary with inverse document frequencies. It is immutable after Fit.
type Space struct {
	opts  Options
	vocab map[string]int
	terms []string
	idf   []float64
}

// Fit builds a new Space over docs. Every call produces an independent space.
func Fit(docs []string, opts Options) (*Space, error) {
	opts = opts.withDefaults()
	if len(docs) < 2 {
		return nil, ErrTooFewDocuments
	}

	df := map[string]int{}
	total := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, term := range analyze(doc, opts) {
			total[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}
	if len(total) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	if len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	space := &Space{
		opts:  opts,
		vocab: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		space.vocab[term] = i
		space.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return space, nil
}

// FitTransform fits a space on docs and returns their vectors in input order.
func FitTransform(docs []string, opts Options) (*Space, []Vector, error) {
	space, err := Fit(docs, opts)
	if err != nil {
		return nil, nil, err
	}
	vectors := make([]Vector, len(docs))
	for i, doc := range docs {
		vectors[i] = space.Transform(doc)
	}
	return space, vectors, nil
}

// Terms returns the fitted vocabulary in index order.
func (s *Space) Terms() []string {
	return append([]string(nil), s.terms...)
}

// Transform projects doc into the space. Terms outside the vocabulary are ignored.
func (s *Space) Transform(doc string) Vector {
	counts := map[int]float64{}
	for _, term := range analyze(doc, s.opts) {
		if idx, ok := s.vocab[term]; ok {
			counts[idx]++
		}
	}

	v := Vector{Index: make([]int, 0, len(counts)), Value: make([]float64, 0, len(counts))}
	for idx := range counts {
		v.Index = append(v.Index, idx)
	}
	sort.Ints(v.Index)

	for _, idx := range v.Index {
		v.Value = append(v.Value, counts[idx]*s.idf[idx])
	}
	if norm := floats.Norm(v.Value, 2); norm > 0 {
		floats.Scale(1/norm, v.Value)
	}
	return v
}

// Dense expands v to the full vocabulary width.
func (s *Space) Dense(v Vector) []float64 {
	out := make([]float64, len(s.terms))
	for i, idx := range v.Index {
		out[idx] = v.Value[i]
	}
	return out
}

func analyze(doc string, opts Options) []string {
	raw := termPattern.FindAllString(strings.ToLower(doc), -1)
	out := raw[:0]
	for _, term := range raw {
		if len([]rune(term)) < opts.MinTokenLength || opts.Stopwords.Contains(term) {
			continue
		}
		out = append(out, term)
	}
	return out
}
