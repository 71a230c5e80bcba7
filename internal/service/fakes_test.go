package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/pkg/extract"
)

type fakeLoader struct {
	texts map[string]string
}

func (f *fakeLoader) Load(_ context.Context, source string) (extract.Document, error) {
	text, ok := f.texts[source]
	if !ok {
		return extract.Document{}, fmt.Errorf("read %s: no such file", source)
	}
	return extract.Document{Source: source, Text: text}, nil
}

func (f *fakeLoader) LoadAll(ctx context.Context, sources []string) ([]extract.Document, []extract.Failure) {
	docs := make([]extract.Document, len(sources))
	var failures []extract.Failure
	for i, source := range sources {
		doc, err := f.Load(ctx, source)
		if err != nil {
			failures = append(failures, extract.Failure{Index: i, Source: source, Reason: err.Error(), Err: err})
			continue
		}
		docs[i] = doc
	}
	return docs, failures
}

type fakeEvaluationRepo struct {
	mu        sync.Mutex
	items     []models.Evaluation
	createErr error
	lastList  repository.EvaluationFilter
}

func (f *fakeEvaluationRepo) Create(_ context.Context, evaluation *models.Evaluation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *evaluation)
	return nil
}

func (f *fakeEvaluationRepo) GetByID(_ context.Context, id string) (models.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.Evaluation{}, gorm.ErrRecordNotFound
}

func (f *fakeEvaluationRepo) List(ctx context.Context, filter repository.EvaluationFilter) ([]models.Evaluation, int64, error) {
	f.lastList = filter
	items, err := f.ListAll(ctx, filter.Label)
	return items, int64(len(items)), err
}

func (f *fakeEvaluationRepo) ListAll(_ context.Context, label string) ([]models.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Evaluation
	for _, item := range f.items {
		if label == "" || item.Label == label {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedding provider unavailable")
}

func (failingEmbedder) Model() string { return "failing" }

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}
