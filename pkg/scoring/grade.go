package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/gema-grader/pkg/embedding"
	"github.com/noah-isme/gema-grader/pkg/nlp"
	"github.com/noah-isme/gema-grader/pkg/segment"
	"github.com/noah-isme/gema-grader/pkg/vectorize"
)

// MaxScore is the top of the per-question scale.
const MaxScore = 5.0

// Topic labels used when a question could not be scored normally.
const (
	TopicGeneral       = "General"
	TopicMissingAnswer = "Missing Answer"
	TopicError         = "Error"
	TopicScoringError  = "Scoring Error"
)

// ErrEmptyReference marks a question whose answer key entry has no usable text.
var ErrEmptyReference = errors.New("reference answer is empty")

// Record statuses.
const (
	StatusScored  = "scored"
	StatusMissing = "missing"
	StatusError   = "error"
)

// Grade is the numeric outcome of one comparison.
type Grade struct {
	Score             float64
	SimilarityPercent float64
}

// GradeSimilarity maps a cosine similarity to the 0–5 scale. Negative similarities count as 0.
func GradeSimilarity(sim float64) Grade {
	sim = vectorize.Clamp01(sim)
	score := sim * MaxScore
	if score > MaxScore {
		score = MaxScore
	}
	return Grade{
		Score:             Round(score, 2),
		SimilarityPercent: Round(sim*100, 2),
	}
}

// TopicLabel joins up to three alphabetical reference keywords, or returns TopicGeneral.
func TopicLabel(keywords []string) string {
	sorted := nlp.Distinct(keywords)
	if len(sorted) == 0 {
		return TopicGeneral
	}
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}
	return strings.Join(sorted, ", ")
}

// Record is the scored result of one question. It is built once and not modified afterwards.
type Record struct {
	Question        int
	Score           float64
	Similarity      float64
	Topic           string
	StudentAnswer   string
	ReferenceAnswer string
	Feedback        []string
	Status          string
	Err             error
}

// Grader scores answer pairs by semantic similarity.
type Grader struct {
	normalizer *nlp.Normalizer
	embedder   embedding.Embedder
}

// NewGrader builds a Grader from shared normalizer and embedder instances.
func NewGrader(normalizer *nlp.Normalizer, embedder embedding.Embedder) *Grader {
	return &Grader{normalizer: normalizer, embedder: embedder}
}

// Model names the embedding model behind the grader.
func (g *Grader) Model() string { return g.embedder.Model() }

// Score grades one pair. Blank answers short-circuit to zero without calling the embedder, and an
// embedding failure scores zero with TopicScoringError; neither is returned as an error.
func (g *Grader) Score(ctx context.Context, pair segment.AnswerPair) Record {
	studentTokens := g.normalizer.Tokens(pair.Student.Answer)
	referenceTokens := g.normalizer.Tokens(pair.Reference.Answer)
	studentKeywords := nlp.Distinct(studentTokens)
	referenceKeywords := nlp.Distinct(referenceTokens)

	record := Record{
		Question:        pair.Index,
		StudentAnswer:   pair.Student.Answer,
		ReferenceAnswer: pair.Reference.Answer,
	}

	finish := func(grade Grade, topic, status string, err error) Record {
		record.Score = grade.Score
		record.Similarity = grade.SimilarityPercent
		record.Topic = topic
		record.Status = status
		record.Err = err
		record.Feedback = Feedback(grade.Score, studentKeywords, referenceKeywords)
		return record
	}

	switch {
	case len(studentTokens) == 0:
		return finish(Grade{}, TopicMissingAnswer, StatusMissing, nil)
	case len(referenceTokens) == 0:
		return finish(Grade{}, TopicError, StatusError, ErrEmptyReference)
	}

	studentVec, err := g.embed(ctx, studentTokens)
	if err != nil {
		return finish(Grade{}, TopicScoringError, StatusError, err)
	}
	referenceVec, err := g.embed(ctx, referenceTokens)
	if err != nil {
		return finish(Grade{}, TopicScoringError, StatusError, err)
	}

	grade := GradeSimilarity(vectorize.Cosine(studentVec, referenceVec))
	return finish(grade, TopicLabel(referenceKeywords), StatusScored, nil)
}

// embed turns an embedder panic into an error so one question cannot abort a whole sheet.
func (g *Grader) embed(ctx context.Context, tokens []string) (vec []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("embedder panicked: %v", r)
		}
	}()
	return g.embedder.Embed(ctx, strings.Join(tokens, " "))
}
