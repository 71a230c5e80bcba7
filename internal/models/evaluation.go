package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// EvaluationResult is the stored form of one graded question.
type EvaluationResult struct {
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

// Evaluation is one persisted grading run for a single submission.
type Evaluation struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Label         string         `gorm:"size:128;index" json:"label"`
	StudentName   string         `gorm:"size:255;index" json:"student_name"`
	TotalScore    float64        `json:"total_score"`
	MaxScore      float64        `json:"max_score"`
	Percentage    float64        `json:"percentage"`
	QuestionCount int            `json:"question_count"`
	Model         string         `gorm:"size:64" json:"model"`
	Results       datatypes.JSON `gorm:"type:json" json:"-"`
	Warnings      datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

// SetResults serializes per-question results into the JSON column.
func (e *Evaluation) SetResults(results []EvaluationResult) {
	e.Results = marshalJSON(results)
}

// ResultList deserializes the stored per-question results.
func (e Evaluation) ResultList() []EvaluationResult {
	var results []EvaluationResult
	if len(e.Results) == 0 || json.Unmarshal(e.Results, &results) != nil {
		return nil
	}
	return results
}

// SetWarnings serializes segmentation warnings into the JSON column.
func (e *Evaluation) SetWarnings(warnings []string) {
	e.Warnings = marshalJSON(warnings)
}

// WarningList deserializes the stored warnings.
func (e Evaluation) WarningList() []string {
	var warnings []string
	if len(e.Warnings) == 0 || json.Unmarshal(e.Warnings, &warnings) != nil {
		return nil
	}
	return warnings
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}
