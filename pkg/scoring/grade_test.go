package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/pkg/embedding"
	"github.com/noah-isme/gema-grader/pkg/nlp"
	"github.com/noah-isme/gema-grader/pkg/segment"
)

type stubEmbedder struct {
	calls int
	err   error
	inner embedding.Embedder
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Embed(ctx, text)
}

func (s *stubEmbedder) Model() string { return "stub" }

func pair(student, reference string) segment.AnswerPair {
	return segment.AnswerPair{
		Index:     1,
		Student:   segment.QuestionBlock{Index: 1, Number: 1, Answer: student},
		Reference: segment.QuestionBlock{Index: 1, Number: 1, Answer: reference},
	}
}

func TestGradeSimilarity(t *testing.T) {
	require.Equal(t, Grade{Score: 5, SimilarityPercent: 100}, GradeSimilarity(1))
	require.Equal(t, Grade{Score: 5, SimilarityPercent: 100}, GradeSimilarity(1.0000001))
	require.Equal(t, Grade{Score: 0, SimilarityPercent: 0}, GradeSimilarity(-0.3))
	require.Equal(t, Grade{Score: 3.09, SimilarityPercent: 61.73}, GradeSimilarity(0.61728))

	for sim := -1.0; sim <= 1.5; sim += 0.05 {
		g := GradeSimilarity(sim)
		require.GreaterOrEqual(t, g.Score, 0.0)
		require.LessOrEqual(t, g.Score, MaxScore)
		require.GreaterOrEqual(t, g.SimilarityPercent, 0.0)
		require.LessOrEqual(t, g.SimilarityPercent, 100.0)
	}
}

func TestTopicLabel(t *testing.T) {
	require.Equal(t, TopicGeneral, TopicLabel(nil))
	require.Equal(t, "cell", TopicLabel([]string{"cell"}))
	require.Equal(t, "energy, mitochondria, powerhouse", TopicLabel([]string{"powerhouse", "mitochondria", "energy", "cell", "energy"}))
}

func TestGraderIdenticalAnswers(t *testing.T) {
	embedder := &stubEmbedder{inner: embedding.NewHashingEmbedder(0)}
	grader := NewGrader(nlp.New(), embedder)

	record := grader.Score(context.Background(), pair("the mitochondria is the powerhouse", "the mitochondria is the powerhouse"))
	require.Equal(t, StatusScored, record.Status)
	require.Equal(t, 5.0, record.Score)
	require.Equal(t, 100.0, record.Similarity)
	require.Equal(t, "mitochondria, powerhouse", record.Topic)
	require.Contains(t, strings.ToLower(record.Feedback[0]), "excellent")
	require.Equal(t, 2, embedder.calls)
}

func TestGraderMissingStudentAnswerSkipsEmbedder(t *testing.T) {
	embedder := &stubEmbedder{inner: embedding.NewHashingEmbedder(0)}
	grader := NewGrader(nlp.New(), embedder)

	for _, student := range []string{"", "   ", "the is of"} {
		record := grader.Score(context.Background(), pair(student, "photosynthesis uses light energy"))
		require.Equal(t, 0.0, record.Score)
		require.Equal(t, 0.0, record.Similarity)
		require.Equal(t, TopicMissingAnswer, record.Topic)
		require.Equal(t, StatusMissing, record.Status)
		require.Equal(t, student, record.StudentAnswer)
	}
	require.Zero(t, embedder.calls)
}

func TestGraderEmptyReference(t *testing.T) {
	embedder := &stubEmbedder{inner: embedding.NewHashingEmbedder(0)}
	record := NewGrader(nlp.New(), embedder).Score(context.Background(), pair("light energy", ""))

	require.Equal(t, TopicError, record.Topic)
	require.Equal(t, StatusError, record.Status)
	require.ErrorIs(t, record.Err, ErrEmptyReference)
	require.Zero(t, record.Score)
	require.Zero(t, embedder.calls)
}

type panickingEmbedder struct{}

func (panickingEmbedder) Embed(context.Context, string) ([]float64, error) {
	panic("index out of range")
}

func (panickingEmbedder) Model() string { return "panicking" }

func TestGraderEmbedderPanicScoresQuestionAsError(t *testing.T) {
	grader := NewGrader(nlp.New(), panickingEmbedder{})

	var record Record
	require.NotPanics(t, func() {
		record = grader.Score(context.Background(), pair("light energy", "light energy"))
	})
	require.Equal(t, TopicScoringError, record.Topic)
	require.Equal(t, StatusError, record.Status)
	require.ErrorContains(t, record.Err, "embedder panicked")
	require.Zero(t, record.Score)
}

func TestGraderEmbeddingFailure(t *testing.T) {
	failure := errors.New("model offline")
	embedder := &stubEmbedder{err: failure}
	record := NewGrader(nlp.New(), embedder).Score(context.Background(), pair("light energy", "light energy"))

	require.Equal(t, TopicScoringError, record.Topic)
	require.Equal(t, StatusError, record.Status)
	require.Zero(t, record.Score)
	require.ErrorIs(t, record.Err, failure)
	require.NotEmpty(t, record.Feedback)
}
