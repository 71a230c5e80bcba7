package analytics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func classRows() []Row {
	return []Row{
		{StudentName: "alice", Score: 5, Topic: "cell, energy", StudentAnswer: "mitochondria make energy", ReferenceAnswer: "mitochondria produce energy"},
		{StudentName: "alice", Score: 4, Topic: "force, gravity", StudentAnswer: "gravity is a force", ReferenceAnswer: "gravity is an attractive force"},
		{StudentName: "bob", Score: 2, Topic: "cell, energy", StudentAnswer: "cells are small", ReferenceAnswer: "mitochondria produce energy"},
		{StudentName: "bob", Score: 1, Topic: "force, gravity", StudentAnswer: "things fall", ReferenceAnswer: "gravity is an attractive force"},
		{StudentName: "carol", Score: 3, Topic: "light, plant", StudentAnswer: "plants use light", ReferenceAnswer: "plants convert light into sugar"},
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	_, err := NewAnalyzer(Options{}).Analyze(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestAnalyzeOverall(t *testing.T) {
	analysis, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)

	o := analysis.Overall
	require.InDelta(t, 3.0, o.Average, 1e-9)
	require.Equal(t, 5.0, o.Max)
	require.Equal(t, 1.0, o.Min)
	require.InDelta(t, math.Sqrt(2.5), o.StdDev, 1e-9)
	require.InDelta(t, 0.6, o.PassRate, 1e-9)
	require.Equal(t, 3, o.TotalStudents)
	require.Equal(t, 5, o.TotalAttempts)
}

func TestAnalyzeStudentsAndTopics(t *testing.T) {
	analysis, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)

	require.Equal(t, []StudentStat{
		{Name: "alice", Average: 4.5, Highest: 5, Attempts: 2},
		{Name: "carol", Average: 3, Highest: 3, Attempts: 1},
		{Name: "bob", Average: 1.5, Highest: 2, Attempts: 2},
	}, analysis.TopStudents)

	names := func(stats []TopicStat) []string {
		out := make([]string, len(stats))
		for i, s := range stats {
			out[i] = s.Topic
		}
		return out
	}
	require.Equal(t, []string{"force, gravity", "light, plant", "cell, energy"}, names(analysis.DifficultTopics))
	require.Equal(t, []string{"cell, energy", "light, plant", "force, gravity"}, names(analysis.EasyTopics))
	require.InDelta(t, math.Sqrt(4.5), analysis.EasyTopics[0].Difficulty, 1e-9)
	require.Zero(t, analysis.DifficultTopics[1].Difficulty)
}

func TestAnalyzeTopStudentsCapped(t *testing.T) {
	var rows []Row
	for i := 0; i < 15; i++ {
		rows = append(rows, Row{StudentName: string(rune('a' + i)), Score: float64(i % 5), Topic: "t"})
	}
	analysis, err := NewAnalyzer(Options{}).Analyze(rows)
	require.NoError(t, err)
	require.Len(t, analysis.TopStudents, 10)
	require.Len(t, analysis.DifficultTopics, 1)
}

func TestAnalyzeTopicTiesAreStable(t *testing.T) {
	rows := []Row{
		{StudentName: "a", Score: 2, Topic: "zeta"},
		{StudentName: "a", Score: 2, Topic: "alpha"},
		{StudentName: "a", Score: 2, Topic: "mid"},
		{StudentName: "a", Score: 2, Topic: "beta"},
	}
	first, err := NewAnalyzer(Options{}).Analyze(rows)
	require.NoError(t, err)
	require.Equal(t, "alpha", first.DifficultTopics[0].Topic)
	require.Equal(t, "alpha", first.EasyTopics[0].Topic)

	for i := 0; i < 5; i++ {
		again, err := NewAnalyzer(Options{}).Analyze(rows)
		require.NoError(t, err)
		require.Equal(t, first.DifficultTopics, again.DifficultTopics)
	}
}

func TestAnalyzeClusters(t *testing.T) {
	analysis, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)

	outcome := analysis.Clusters
	require.Equal(t, ClusterStatusOK, outcome.Status)
	require.NotEmpty(t, outcome.Clusters)
	require.LessOrEqual(t, len(outcome.Clusters), 5)

	total := 0
	for _, c := range outcome.Clusters {
		total += c.Count
		require.LessOrEqual(t, len(c.CommonTerms), 5)
		if len(c.CommonTerms) > 0 && c.CommonTerms[0] == "cell" {
			require.InDelta(t, 3.5, c.AvgScore, 1e-9)
		}
	}
	require.Equal(t, 5, total)
}

func TestAnalyzeClustersAreDeterministic(t *testing.T) {
	a, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)
	b, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)
	require.Equal(t, a.Clusters, b.Clusters)
}

func TestAnalyzeClusterFailureAndDisabled(t *testing.T) {
	rows := classRows()[:3]

	analysis, err := NewAnalyzer(Options{}).Analyze(rows)
	require.NoError(t, err)
	require.Equal(t, ClusterStatusFailed, analysis.Clusters.Status)
	require.Equal(t, ErrTooFewSamples.Error(), analysis.Clusters.Reason)
	require.Empty(t, analysis.Clusters.Clusters)

	disabled, err := NewAnalyzer(Options{DisableClustering: true}).Analyze(rows)
	require.NoError(t, err)
	require.Equal(t, ClusterStatusDisabled, disabled.Clusters.Status)
}

func TestAnalyzeSimilarityStats(t *testing.T) {
	analysis, err := NewAnalyzer(Options{}).Analyze(classRows())
	require.NoError(t, err)

	s := analysis.Similarity
	require.Greater(t, s.Max, 0.0)
	require.Zero(t, s.Min)
	require.LessOrEqual(t, s.Max, 1.0)
	require.Greater(t, s.Average, 0.0)
}

func TestAnalyzeSimilarityStatsSingleRow(t *testing.T) {
	analysis, err := NewAnalyzer(Options{}).Analyze(classRows()[:1])
	require.NoError(t, err)
	require.Equal(t, SimilarityStats{}, analysis.Similarity)
}

func TestAnalyzeCommonErrors(t *testing.T) {
	rows := []Row{
		{StudentName: "a", Score: 1, Topic: "x", StudentAnswer: strings.Repeat("stuff ", 6) + "energy", ReferenceAnswer: "energy transfer"},
		{StudentName: "b", Score: 1, Topic: "x", StudentAnswer: strings.Repeat("thing ", 5) + "energy energy energy energy energy energy", ReferenceAnswer: "energy"},
		{StudentName: "c", Score: 1, Topic: "x", StudentAnswer: strings.Repeat("Whatever ", 9), ReferenceAnswer: "mass"},
	}
	analysis, err := NewAnalyzer(Options{}).Analyze(rows)
	require.NoError(t, err)

	require.Equal(t, []TermCount{{Term: "whatever", Count: 9}, {Term: "stuff", Count: 6}}, analysis.CommonErrors)
}

func TestReadCSV(t *testing.T) {
	data := "\ufeffStudent Name,Score/5,Topic,Student Answer,Reference Answer,Extra\n" +
		`"Jane ",3.5/5,"cell, energy","""mitochondria""",mitochondria produce energy,x` + "\n" +
		`,n/a,force,,gravity` + "\n"

	rows, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []Row{
		{StudentName: "Jane", Score: 3.5, Topic: "cell, energy", StudentAnswer: "mitochondria", ReferenceAnswer: "mitochondria produce energy"},
		{StudentName: "Unknown", Score: 0, Topic: "force", StudentAnswer: "", ReferenceAnswer: "gravity"},
	}, rows)
}

func TestReadCSVMissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Student Name,Score/5\nJane,3\n"))
	require.ErrorIs(t, err, ErrMissingColumns)
	require.Contains(t, err.Error(), "Topic")
}

func TestReadCSVScoreAboveScale(t *testing.T) {
	data := "Student Name,Score/5,Topic,Student Answer,Reference Answer\n" +
		"Jane,4,cells,a,b\n" +
		"Omar,7/5,cells,a,b\n"

	_, err := ReadCSV(strings.NewReader(data))
	require.ErrorIs(t, err, ErrScoreOutOfRange)
	require.Contains(t, err.Error(), "line 3")
}

func TestReadCSVEmpty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestParseScore(t *testing.T) {
	require.Equal(t, 4.0, ParseScore("4"))
	require.Equal(t, 2.75, ParseScore("score: 2.75 / 5"))
	require.Equal(t, 0.0, ParseScore(""))
	require.Equal(t, 0.0, ParseScore("..."))
}

func TestSummaryHelpers(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	require.InDelta(t, 5.0, mean(values), 1e-9)
	require.InDelta(t, math.Sqrt(32.0/7.0), sampleStdDev(values), 1e-9)
	lo, hi := minMax(values)
	require.Equal(t, 2.0, lo)
	require.Equal(t, 9.0, hi)

	require.Zero(t, mean(nil))
	require.Zero(t, sampleStdDev([]float64{3}))
	lo, hi = minMax(nil)
	require.Zero(t, lo)
	require.Zero(t, hi)
}
