package dto

import "github.com/noah-isme/gema-grader/pkg/analytics"

// AnalyticsRow is one graded answer in a class batch.
type AnalyticsRow struct {
	StudentName     string  `json:"student_name" validate:"required"`
	Score           float64 `json:"score" validate:"gte=0,lte=5"`
	Topic           string  `json:"topic" validate:"required"`
	StudentAnswer   string  `json:"student_answer" validate:"required_without=ReferenceAnswer"`
	ReferenceAnswer string  `json:"reference_answer" validate:"required_without=StudentAnswer"`
}

// ClassAnalyticsRequest is the JSON form of a class batch.
type ClassAnalyticsRequest struct {
	Rows []AnalyticsRow `json:"rows" validate:"dive"`
}

// OverallStats summarises every score in the batch.
type OverallStats struct {
	Average       float64 `json:"average"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	StdDev        float64 `json:"std_dev"`
	PassRate      float64 `json:"pass_rate"`
	TotalStudents int     `json:"total_students"`
	TotalAttempts int     `json:"total_attempts"`
}

// StudentPerformance is one row of the top-student table.
type StudentPerformance struct {
	Name     string  `json:"name"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Attempts int     `json:"attempts"`
}

// TopicPerformance is one row of the topic tables.
type TopicPerformance struct {
	Topic      string  `json:"topic"`
	Average    float64 `json:"average"`
	Attempts   int     `json:"attempts"`
	Difficulty float64 `json:"difficulty"`
}

// TopicCluster summarises one group of related topics.
type TopicCluster struct {
	ID          int      `json:"id"`
	CommonTerms []string `json:"common_terms"`
	AvgScore    float64  `json:"avg_score"`
	Count       int      `json:"count"`
}

// ClusterSummary reports the clustering outcome.
type ClusterSummary struct {
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Clusters []TopicCluster `json:"clusters"`
}

// SimilaritySummary summarises answer-to-reference similarity.
type SimilaritySummary struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// CommonError is a term students use that never appears in references.
type CommonError struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// ClassAnalyticsResponse is the class snapshot.
type ClassAnalyticsResponse struct {
	Overall         OverallStats         `json:"overall"`
	TopStudents     []StudentPerformance `json:"top_students"`
	DifficultTopics []TopicPerformance   `json:"difficult_topics"`
	EasyTopics      []TopicPerformance   `json:"easy_topics"`
	Clusters        ClusterSummary       `json:"clusters"`
	Similarity      SimilaritySummary    `json:"similarity"`
	CommonErrors    []CommonError        `json:"common_errors"`
}

// RowsFromRequest converts request rows to analytics rows.
func RowsFromRequest(rows []AnalyticsRow) []analytics.Row {
	out := make([]analytics.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.NormalizeRow(analytics.Row{
			StudentName:     r.StudentName,
			Score:           r.Score,
			Topic:           r.Topic,
			StudentAnswer:   r.StudentAnswer,
			ReferenceAnswer: r.ReferenceAnswer,
		}))
	}
	return out
}

// NewClassAnalyticsResponse maps an analysis to its response form.
func NewClassAnalyticsResponse(a analytics.Analysis) ClassAnalyticsResponse {
	resp := ClassAnalyticsResponse{
		Overall: OverallStats{
			Average:       a.Overall.Average,
			Max:           a.Overall.Max,
			Min:           a.Overall.Min,
			StdDev:        a.Overall.StdDev,
			PassRate:      a.Overall.PassRate,
			TotalStudents: a.Overall.TotalStudents,
			TotalAttempts: a.Overall.TotalAttempts,
		},
		TopStudents:     make([]StudentPerformance, 0, len(a.TopStudents)),
		DifficultTopics: topicRows(a.DifficultTopics),
		EasyTopics:      topicRows(a.EasyTopics),
		Clusters: ClusterSummary{
			Status:   a.Clusters.Status,
			Reason:   a.Clusters.Reason,
			Clusters: make([]TopicCluster, 0, len(a.Clusters.Clusters)),
		},
		Similarity: SimilaritySummary{
			Average: a.Similarity.Average,
			Max:     a.Similarity.Max,
			Min:     a.Similarity.Min,
		},
		CommonErrors: make([]CommonError, 0, len(a.CommonErrors)),
	}
	for _, s := range a.TopStudents {
		resp.TopStudents = append(resp.TopStudents, StudentPerformance{Name: s.Name, Average: s.Average, Highest: s.Highest, Attempts: s.Attempts})
	}
	for _, c := range a.Clusters.Clusters {
		terms := c.CommonTerms
		if terms == nil {
			terms = []string{}
		}
		resp.Clusters.Clusters = append(resp.Clusters.Clusters, TopicCluster{ID: c.ID, CommonTerms: terms, AvgScore: c.AvgScore, Count: c.Count})
	}
	for _, e := range a.CommonErrors {
		resp.CommonErrors = append(resp.CommonErrors, CommonError{Term: e.Term, Count: e.Count})
	}
	return resp
}

func topicRows(stats []analytics.TopicStat) []TopicPerformance {
	rows := make([]TopicPerformance, 0, len(stats))
	for _, t := range stats {
		rows = append(rows, TopicPerformance{Topic: t.Topic, Average: t.Average, Attempts: t.Attempts, Difficulty: t.Difficulty})
	}
	return rows
}
