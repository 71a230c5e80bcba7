package handler_test

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/dto"
)

func sampleGradingResponse() dto.GradingResponse {
	return dto.GradingResponse{
		EvaluationID: "run-1",
		StudentName:  "Alice",
		Label:        "week-1",
		TotalScore:   4.5,
		MaxScore:     10,
		Percentage:   45,
		Model:        "local-hashing",
		Results: []dto.QuestionResult{
			{
				Question:        1,
				Score:           4.5,
				Similarity:      90,
				Topic:           "cell, energy, mitochondria",
				Status:          "scored",
				StudentAnswer:   "cells",
				ReferenceAnswer: "cells make energy",
				Feedback:        []string{"Excellent answer: your response closely matches the expected concepts."},
			},
			{
				Question:        2,
				Topic:           "Missing Answer",
				Status:          "missing",
				ReferenceAnswer: "osmosis",
				Feedback:        []string{"The answer does not address the expected concepts."},
			},
		},
		Warnings:  []string{"reference has 2 questions, submission has 1"},
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func samplePlagiarismResponse() dto.PlagiarismCheckResponse {
	return dto.PlagiarismCheckResponse{
		Threshold: 60,
		Results:   []dto.PlagiarismPair{{File1Index: 0, File2Index: 2, SimilarityScore: 0.9731, IsPlagiarised: true}},
		Skipped:   []dto.SkippedDocument{{Index: 1, Source: "https://example.com/b.pdf", Reason: "no extractable text"}},
	}
}

func sampleAnalyticsResponse() dto.ClassAnalyticsResponse {
	return dto.ClassAnalyticsResponse{
		Overall:         dto.OverallStats{Average: 3.5, Max: 5, Min: 2, StdDev: 1.2, PassRate: 0.75, TotalStudents: 2, TotalAttempts: 4},
		TopStudents:     []dto.StudentPerformance{{Name: "Alice", Average: 4.5, Highest: 5, Attempts: 2}},
		DifficultTopics: []dto.TopicPerformance{{Topic: "osmosis", Average: 2, Attempts: 2, Difficulty: 0}},
		EasyTopics:      []dto.TopicPerformance{{Topic: "cells", Average: 5, Attempts: 2, Difficulty: 0}},
		Clusters: dto.ClusterSummary{
			Status:   "ok",
			Clusters: []dto.TopicCluster{{ID: 0, CommonTerms: []string{"cells"}, AvgScore: 5, Count: 2}},
		},
		Similarity:   dto.SimilaritySummary{Average: 0.5, Max: 1, Min: 0},
		CommonErrors: []dto.CommonError{{Term: "mitochondrion", Count: 6}},
	}
}
