package dto

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/models"
)

// EvaluationListRequest filters stored grading runs.
type EvaluationListRequest struct {
	Label       string `query:"label" validate:"omitempty,max=128"`
	StudentName string `query:"student" validate:"omitempty,max=255"`
	Page        int    `query:"page" validate:"omitempty,min=1"`
	PageSize    int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// EvaluationSummary is the list form of a stored run.
type EvaluationSummary struct {
	ID            string    `json:"id"`
	Label         string    `json:"label"`
	StudentName   string    `json:"student_name"`
	TotalScore    float64   `json:"total_score"`
	MaxScore      float64   `json:"max_score"`
	Percentage    float64   `json:"percentage"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaginationMeta describes a page of results.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

// EvaluationListResponse is a page of stored runs.
type EvaluationListResponse struct {
	Items      []EvaluationSummary `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewEvaluationSummary maps a stored run to its list form.
func NewEvaluationSummary(e models.Evaluation) EvaluationSummary {
	return EvaluationSummary{
		ID:            e.ID,
		Label:         e.Label,
		StudentName:   e.StudentName,
		TotalScore:    e.TotalScore,
		MaxScore:      e.MaxScore,
		Percentage:    e.Percentage,
		QuestionCount: e.QuestionCount,
		CreatedAt:     e.CreatedAt,
	}
}

// NewGradingResponseFromModel rebuilds the full grading response of a stored run.
func NewGradingResponseFromModel(e models.Evaluation) GradingResponse {
	stored := e.ResultList()
	results := make([]QuestionResult, 0, len(stored))
	for _, r := range stored {
		feedback := r.Feedback
		if feedback == nil {
			feedback = []string{}
		}
		results = append(results, QuestionResult{
			Question:        r.Question,
			Score:           r.Score,
			Similarity:      r.Similarity,
			Topic:           r.Topic,
			Status:          r.Status,
			StudentAnswer:   r.StudentAnswer,
			ReferenceAnswer: r.ReferenceAnswer,
			Feedback:        feedback,
			Error:           r.Error,
		})
	}
	warnings := e.WarningList()
	if warnings == nil {
		warnings = []string{}
	}
	return GradingResponse{
		EvaluationID: e.ID,
		StudentName:  e.StudentName,
		Label:        e.Label,
		TotalScore:   e.TotalScore,
		MaxScore:     e.MaxScore,
		Percentage:   e.Percentage,
		Model:        e.Model,
		Results:      results,
		Warnings:     warnings,
		CreatedAt:    e.CreatedAt,
	}
}
