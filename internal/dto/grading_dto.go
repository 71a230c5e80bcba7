package dto

import "time"

// GradingRequest carries a submission and its answer key. Each side is given either inline or as a
// file path or URL.
type GradingRequest struct {
	StudentDocument   string `json:"student_document" validate:"required_without=StudentSource"`
	ReferenceDocument string `json:"reference_document" validate:"required_without=ReferenceSource"`
	StudentSource     string `json:"student_source" validate:"omitempty,max=2048"`
	ReferenceSource   string `json:"reference_source" validate:"omitempty,max=2048"`
	StudentName       string `json:"student_name" validate:"omitempty,max=255"`
	Label             string `json:"label" validate:"omitempty,max=128"`
}

// QuestionResult is the scored outcome of one reference question.
type QuestionResult struct {
	Question        int      `json:"question"`
	Score           float64  `json:"score"`
	Similarity      float64  `json:"similarity"`
	Topic           string   `json:"topic"`
	Status          string   `json:"status"`
	StudentAnswer   string   `json:"student_answer"`
	ReferenceAnswer string   `json:"reference_answer"`
	Feedback        []string `json:"feedback"`
	Error           string   `json:"error,omitempty"`
}

// GradingResponse summarises a grading run.
type GradingResponse struct {
	EvaluationID string           `json:"evaluation_id,omitempty"`
	StudentName  string           `json:"student_name,omitempty"`
	Label        string           `json:"label,omitempty"`
	TotalScore   float64          `json:"total_score"`
	MaxScore     float64          `json:"max_score"`
	Percentage   float64          `json:"percentage"`
	Model        string           `json:"model"`
	Results      []QuestionResult `json:"results"`
	Warnings     []string         `json:"warnings"`
	CreatedAt    time.Time        `json:"created_at"`
}

// GradingCompletedEvent is published once a grading run is persisted.
type GradingCompletedEvent struct {
	EvaluationID  string    `json:"evaluation_id"`
	StudentName   string    `json:"student_name"`
	Label         string    `json:"label"`
	TotalScore    float64   `json:"total_score"`
	MaxScore      float64   `json:"max_score"`
	QuestionCount int       `json:"question_count"`
	CompletedAt   time.Time `json:"completed_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
