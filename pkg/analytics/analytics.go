// Package analytics aggregates per-attempt scores into class-level statistics.
package analytics

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/noah-isme/gema-grader/pkg/vectorize"
)

// ErrNoData is returned when there is nothing to analyse.
var ErrNoData = errors.New("no valid data to analyze")

// NoDataMessage is the user-facing text for ErrNoData.
const NoDataMessage = "No valid data to analyze"

// PassMark is half of the five point scale.
const PassMark = 2.5

// Row is one graded attempt.
type Row struct {
	StudentName     string
	Score           float64
	Topic           string
	StudentAnswer   string
	ReferenceAnswer string
}

// Overall summarises every score in the batch.
type Overall struct {
	Average       float64
	Max           float64
	Min           float64
	StdDev        float64
	PassRate      float64
	TotalStudents int
	TotalAttempts int
}

// StudentStat aggregates one student's attempts.
type StudentStat struct {
	Name     string
	Average  float64
	Highest  float64
	Attempts int
}

// TopicStat aggregates attempts on one topic. Difficulty is the score standard deviation.
type TopicStat struct {
	Topic      string
	Average    float64
	Attempts   int
	Difficulty float64
}

// Cluster groups related topics.
type Cluster struct {
	ID          int
	CommonTerms []string
	AvgScore    float64
	Count       int
}

// Cluster outcome statuses.
const (
	ClusterStatusOK       = "ok"
	ClusterStatusFailed   = "failed"
	ClusterStatusDisabled = "disabled"
)

// ClusterOutcome separates a clustering failure from clustering being switched off.
type ClusterOutcome struct {
	Status   string
	Reason   string
	Clusters []Cluster
}

// SimilarityStats summarises lexical similarity between student and reference answers.
type SimilarityStats struct {
	Average float64
	Max     float64
	Min     float64
}

// TermCount is a term with its frequency.
type TermCount struct {
	Term  string
	Count int
}

// Analysis is a full class snapshot. It is rebuilt on every call.
type Analysis struct {
	Overall         Overall
	TopStudents     []StudentStat
	DifficultTopics []TopicStat
	EasyTopics      []TopicStat
	Clusters        ClusterOutcome
	Similarity      SimilarityStats
	CommonErrors    []TermCount
}

// Options tunes an Analyzer.
type Options struct {
	ClusterCount      int
	ClusterSeed       uint64
	DisableClustering bool
	TopStudents       int
	TopicsPerSide     int
	CommonErrors      int
	// ErrorMinCount is the student frequency a term must exceed to count as a common error.
	ErrorMinCount int
	MaxFeatures   int
}

// DefaultOptions mirrors the classroom report defaults.
func DefaultOptions() Options {
	return Options{
		ClusterCount:  5,
		ClusterSeed:   42,
		TopStudents:   10,
		TopicsPerSide: 3,
		CommonErrors:  10,
		ErrorMinCount: 5,
		MaxFeatures:   vectorize.DefaultMaxFeatures,
	}
}

// Analyzer computes Analysis values. It holds no state between calls.
type Analyzer struct {
	opts Options
}

// NewAnalyzer builds an Analyzer; zero option fields take their defaults.
func NewAnalyzer(opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.ClusterCount <= 0 {
		opts.ClusterCount = def.ClusterCount
	}
	if opts.ClusterSeed == 0 {
		opts.ClusterSeed = def.ClusterSeed
	}
	if opts.TopStudents <= 0 {
		opts.TopStudents = def.TopStudents
	}
	if opts.TopicsPerSide <= 0 {
		opts.TopicsPerSide = def.TopicsPerSide
	}
	if opts.CommonErrors <= 0 {
		opts.CommonErrors = def.CommonErrors
	}
	if opts.ErrorMinCount <= 0 {
		opts.ErrorMinCount = def.ErrorMinCount
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	return &Analyzer{opts: opts}
}

// Analyze builds the class snapshot for rows.
func (a *Analyzer) Analyze(rows []Row) (Analysis, error) {
	if len(rows) == 0 {
		return Analysis{}, ErrNoData
	}

	topics := a.topicStats(rows)
	difficult := append([]TopicStat(nil), topics...)
	easy := append([]TopicStat(nil), topics...)
	sort.SliceStable(easy, func(i, j int) bool { return easy[i].Average > easy[j].Average })

	return Analysis{
		Overall:         overall(rows),
		TopStudents:     a.studentStats(rows),
		DifficultTopics: head(difficult, a.opts.TopicsPerSide),
		EasyTopics:      head(easy, a.opts.TopicsPerSide),
		Clusters:        a.clusters(rows),
		Similarity:      a.similarity(rows),
		CommonErrors:    a.commonErrors(rows),
	}, nil
}

func overall(rows []Row) Overall {
	scores := make([]float64, len(rows))
	students := map[string]struct{}{}
	passed := 0
	for i, r := range rows {
		scores[i] = r.Score
		students[r.StudentName] = struct{}{}
		if r.Score >= PassMark {
			passed++
		}
	}
	lo, hi := minMax(scores)
	return Overall{
		Average:       mean(scores),
		Max:           hi,
		Min:           lo,
		StdDev:        sampleStdDev(scores),
		PassRate:      float64(passed) / float64(len(rows)),
		TotalStudents: len(students),
		TotalAttempts: len(rows),
	}
}

func (a *Analyzer) studentStats(rows []Row) []StudentStat {
	grouped, order := groupScores(rows, func(r Row) string { return r.StudentName })
	stats := make([]StudentStat, 0, len(order))
	for _, name := range order {
		scores := grouped[name]
		_, hi := minMax(scores)
		stats = append(stats, StudentStat{Name: name, Average: mean(scores), Highest: hi, Attempts: len(scores)})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Average > stats[j].Average })
	return head(stats, a.opts.TopStudents)
}

// topicStats returns every topic ascending by average, ties in name order.
func (a *Analyzer) topicStats(rows []Row) []TopicStat {
	grouped, order := groupScores(rows, func(r Row) string { return r.Topic })
	stats := make([]TopicStat, 0, len(order))
	for _, topic := range order {
		scores := grouped[topic]
		stats = append(stats, TopicStat{Topic: topic, Average: mean(scores), Attempts: len(scores), Difficulty: sampleStdDev(scores)})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Average < stats[j].Average })
	return stats
}

func (a *Analyzer) clusters(rows []Row) (outcome ClusterOutcome) {
	if a.opts.DisableClustering {
		return ClusterOutcome{Status: ClusterStatusDisabled, Clusters: []Cluster{}}
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = ClusterOutcome{Status: ClusterStatusFailed, Reason: fmt.Sprint(r), Clusters: []Cluster{}}
		}
	}()

	docs := make([]string, len(rows))
	for i, r := range rows {
		docs[i] = r.Topic
	}
	space, vectors, err := vectorize.FitTransform(docs, vectorize.Options{MaxFeatures: a.opts.MaxFeatures})
	if err != nil {
		return ClusterOutcome{Status: ClusterStatusFailed, Reason: err.Error(), Clusters: []Cluster{}}
	}
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		points[i] = space.Dense(v)
	}

	labels, err := kmeans(points, a.opts.ClusterCount, a.opts.ClusterSeed, 300)
	if err != nil {
		return ClusterOutcome{Status: ClusterStatusFailed, Reason: err.Error(), Clusters: []Cluster{}}
	}

	members := map[int][]Row{}
	for i, label := range labels {
		members[label] = append(members[label], rows[i])
	}
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	clusters := make([]Cluster, 0, len(ids))
	for _, id := range ids {
		group := members[id]
		scores := make([]float64, len(group))
		topicText := make([]string, len(group))
		for i, r := range group {
			scores[i] = r.Score
			topicText[i] = r.Topic
		}
		clusters = append(clusters, Cluster{
			ID:          id,
			CommonTerms: termNames(head(countTerms(strings.Join(topicText, " "), clusterTermPattern), 5)),
			AvgScore:    mean(scores),
			Count:       len(group),
		})
	}
	return ClusterOutcome{Status: ClusterStatusOK, Clusters: clusters}
}

func (a *Analyzer) similarity(rows []Row) SimilarityStats {
	students := make([]string, len(rows))
	for i, r := range rows {
		students[i] = r.StudentAnswer
	}
	space, vectors, err := vectorize.FitTransform(students, vectorize.Options{MaxFeatures: a.opts.MaxFeatures})
	if err != nil {
		return SimilarityStats{}
	}
	sims := make([]float64, len(rows))
	for i, r := range rows {
		sims[i] = vectorize.Clamp01(vectorize.CosineSparse(vectors[i], space.Transform(r.ReferenceAnswer)))
	}
	lo, hi := minMax(sims)
	return SimilarityStats{Average: mean(sims), Max: hi, Min: lo}
}

var (
	clusterTermPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)
	errorTermPattern   = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

// commonErrors lists terms students use repeatedly that never appear in any reference answer.
func (a *Analyzer) commonErrors(rows []Row) []TermCount {
	var student, reference strings.Builder
	for _, r := range rows {
		student.WriteString(r.StudentAnswer)
		student.WriteByte(' ')
		reference.WriteString(r.ReferenceAnswer)
		reference.WriteByte(' ')
	}

	referenceVocab := map[string]struct{}{}
	for _, tc := range countTerms(reference.String(), errorTermPattern) {
		referenceVocab[tc.Term] = struct{}{}
	}

	out := make([]TermCount, 0)
	for _, tc := range countTerms(student.String(), errorTermPattern) {
		if _, ok := referenceVocab[tc.Term]; ok || tc.Count <= a.opts.ErrorMinCount {
			continue
		}
		out = append(out, tc)
	}
	return head(out, a.opts.CommonErrors)
}

// countTerms counts pattern matches in lowercased text, most frequent first, ties alphabetical.
func countTerms(text string, pattern *regexp.Regexp) []TermCount {
	counts := map[string]int{}
	for _, term := range pattern.FindAllString(strings.ToLower(text), -1) {
		counts[term]++
	}
	out := make([]TermCount, 0, len(counts))
	for term, n := range counts {
		out = append(out, TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	return out
}

func termNames(terms []TermCount) []string {
	out := make([]string, len(terms))
	for i, tc := range terms {
		out[i] = tc.Term
	}
	return out
}

// groupScores buckets scores by key and returns the keys in name order.
func groupScores(rows []Row, key func(Row) string) (map[string][]float64, []string) {
	grouped := map[string][]float64{}
	for _, r := range rows {
		k := key(r)
		grouped[k] = append(grouped[k], r.Score)
	}
	order := make([]string, 0, len(grouped))
	for k := range grouped {
		order = append(order, k)
	}
	sort.Strings(order)
	return grouped, order
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sampleStdDev uses n-1 degrees of freedom and is 0 for fewer than two values.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}
