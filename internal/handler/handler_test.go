package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/pkg/analytics"
	"github.com/noah-isme/gema-grader/pkg/scoring"
)

type mockGradingService struct {
	lastPayload dto.GradingRequest
	response    dto.GradingResponse
	err         error
}

func (m *mockGradingService) Evaluate(_ context.Context, req dto.GradingRequest) (dto.GradingResponse, error) {
	m.lastPayload = req
	return m.response, m.err
}

type mockPlagiarismService struct {
	lastPayload dto.PlagiarismCheckRequest
	response    dto.PlagiarismCheckResponse
	err         error
}

func (m *mockPlagiarismService) Check(_ context.Context, req dto.PlagiarismCheckRequest) (dto.PlagiarismCheckResponse, error) {
	m.lastPayload = req
	return m.response, m.err
}

type mockAnalyticsService struct {
	lastRows  []dto.AnalyticsRow
	lastCSV   string
	lastLabel string
	response  dto.ClassAnalyticsResponse
	err       error
}

func (m *mockAnalyticsService) Analyze(_ context.Context, req dto.ClassAnalyticsRequest) (dto.ClassAnalyticsResponse, error) {
	m.lastRows = req.Rows
	if len(req.Rows) == 0 {
		return dto.ClassAnalyticsResponse{}, analytics.ErrNoData
	}
	return m.response, m.err
}

func (m *mockAnalyticsService) AnalyzeCSV(_ context.Context, reader io.Reader) (dto.ClassAnalyticsResponse, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return dto.ClassAnalyticsResponse{}, err
	}
	m.lastCSV = string(data)
	return m.response, m.err
}

func (m *mockAnalyticsService) AnalyzeStored(_ context.Context, label string) (dto.ClassAnalyticsResponse, error) {
	m.lastLabel = label
	return m.response, m.err
}

type mockEvaluationService struct {
	lastList dto.EvaluationListRequest
	response dto.GradingResponse
	list     dto.EvaluationListResponse
	err      error
}

func (m *mockEvaluationService) Get(_ context.Context, id string) (dto.GradingResponse, error) {
	if m.err != nil {
		return dto.GradingResponse{}, m.err
	}
	if id != m.response.EvaluationID {
		return dto.GradingResponse{}, service.ErrEvaluationNotFound
	}
	return m.response, nil
}

func (m *mockEvaluationService) List(_ context.Context, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error) {
	m.lastList = req
	return m.list, m.err
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func TestGradingHandler_EvaluateJSON(t *testing.T) {
	svc := &mockGradingService{response: sampleGradingResponse()}
	app := fiber.New()
	handler.NewGradingHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/grading"))

	resp := postJSON(t, app, "/api/v1/grading/evaluate", dto.GradingRequest{
		StudentDocument:   "Q1. Answer: cells",
		ReferenceDocument: "Q1. Answer: cells make energy",
		StudentName:       "Alice",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "submission graded", body.Message)

	var data dto.GradingResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, 4.5, data.TotalScore)
	require.Equal(t, "Alice", svc.lastPayload.StudentName)
}

func TestGradingHandler_EvaluateMultipart(t *testing.T) {
	svc := &mockGradingService{response: sampleGradingResponse()}
	app := fiber.New()
	handler.NewGradingHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/grading"))

	body, contentType := multipartBody(t, map[string]string{"student_name": "Bob", "label": "week-1"}, map[string]string{
		"student_file": "Q1. Answer: cells",
		"answer_key":   "Q1. Answer: cells make energy",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/grading/evaluate", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Q1. Answer: cells", svc.lastPayload.StudentDocument)
	require.Equal(t, "Q1. Answer: cells make energy", svc.lastPayload.ReferenceDocument)
	require.Equal(t, "Bob", svc.lastPayload.StudentName)
	require.Equal(t, "week-1", svc.lastPayload.Label)
}

func TestGradingHandler_MultipartRequiresBothFiles(t *testing.T) {
	app := fiber.New()
	handler.NewGradingHandler(&mockGradingService{}, zerolog.Nop()).Register(app.Group("/api/v1/grading"))

	body, contentType := multipartBody(t, nil, map[string]string{"student_file": "Q1. Answer: cells"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/grading/evaluate", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGradingHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "empty key", err: service.ErrEmptyAnswerKey, statusCode: fiber.StatusBadRequest},
		{name: "unreadable", err: service.ErrDocumentUnreadable, statusCode: fiber.StatusUnprocessableEntity},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			handler.NewGradingHandler(&mockGradingService{err: tc.err}, zerolog.Nop()).Register(app.Group("/api/v1/grading"))

			resp := postJSON(t, app, "/api/v1/grading/evaluate", dto.GradingRequest{StudentDocument: "a", ReferenceDocument: "b"})
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestGradingHandler_ValidationErrorListsFields(t *testing.T) {
	validate := dto.NewValidator()
	validationErr := validate.Struct(dto.GradingRequest{})
	require.Error(t, validationErr)

	app := fiber.New()
	handler.NewGradingHandler(&mockGradingService{err: validationErr}, zerolog.Nop()).Register(app.Group("/api/v1/grading"))

	resp := postJSON(t, app, "/api/v1/grading/evaluate", dto.GradingRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "validation failed", body.Message)
	require.Contains(t, body.Errors, "student_document")
	require.Contains(t, body.Errors, "reference_document")
}

func TestPlagiarismHandler_Check(t *testing.T) {
	svc := &mockPlagiarismService{response: samplePlagiarismResponse()}
	app := fiber.New()
	handler.NewPlagiarismHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/plagiarism"))

	threshold := 60.0
	resp := postJSON(t, app, "/api/v1/plagiarism/check", dto.PlagiarismCheckRequest{
		FileURLs:  []string{"https://example.com/a.pdf", "https://example.com/b.pdf"},
		Threshold: &threshold,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, svc.lastPayload.FileURLs, 2)
	require.Equal(t, 60.0, *svc.lastPayload.Threshold)

	var body envelope
	decodeResponse(t, resp, &body)
	var data dto.PlagiarismCheckResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Results, 1)
	require.True(t, data.Results[0].IsPlagiarised)
}

func TestPlagiarismHandler_Errors(t *testing.T) {
	app := fiber.New()
	handler.NewPlagiarismHandler(&mockPlagiarismService{err: scoring.ErrThresholdOutOfRange}, zerolog.Nop()).Register(app.Group("/api/v1/plagiarism"))

	resp := postJSON(t, app, "/api/v1/plagiarism/check", dto.PlagiarismCheckRequest{FileURLs: []string{"a"}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plagiarism/check", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsHandler_EmptyBatch(t *testing.T) {
	app := fiber.New()
	handler.NewAnalyticsHandler(&mockAnalyticsService{}, zerolog.Nop()).Register(app.Group("/api/v1/analytics"))

	resp := postJSON(t, app, "/api/v1/analytics/class", dto.ClassAnalyticsRequest{})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "No valid data to analyze", body.Message)
}

func TestAnalyticsHandler_JSONAndCSV(t *testing.T) {
	svc := &mockAnalyticsService{response: sampleAnalyticsResponse()}
	app := fiber.New()
	handler.NewAnalyticsHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/analytics"))

	resp := postJSON(t, app, "/api/v1/analytics/class", dto.ClassAnalyticsRequest{Rows: []dto.AnalyticsRow{{StudentName: "Alice", Score: 4, Topic: "cells"}}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, svc.lastRows, 1)

	csv := "Student Name,Score/5,Topic,Student Answer,Reference Answer\nAlice,4,cells,a,b\n"
	body, contentType := multipartBody(t, nil, map[string]string{"file": csv})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/class", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, csv, svc.lastCSV)
}

func TestAnalyticsHandler_Stored(t *testing.T) {
	svc := &mockAnalyticsService{response: sampleAnalyticsResponse()}
	app := fiber.New()
	handler.NewAnalyticsHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/analytics"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/evaluations?label=week-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "week-1", svc.lastLabel)

	svc.err = service.ErrStorageDisabled
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/evaluations", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestEvaluationHandler_GetAndList(t *testing.T) {
	svc := &mockEvaluationService{
		response: sampleGradingResponse(),
		list:     dto.EvaluationListResponse{Items: []dto.EvaluationSummary{{ID: "run-1"}}, Pagination: dto.PaginationMeta{Page: 2, PageSize: 5, TotalItems: 6}},
	}
	app := fiber.New()
	handler.NewEvaluationHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/evaluations"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/run-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/run-404", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations?label=week-1&page=2&page_size=5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "week-1", svc.lastList.Label)
	require.Equal(t, 2, svc.lastList.Page)
	require.Equal(t, 5, svc.lastList.PageSize)
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".txt")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
