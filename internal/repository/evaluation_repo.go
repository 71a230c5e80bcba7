package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/models"
)

// EvaluationFilter narrows evaluation list queries.
type EvaluationFilter struct {
	Label       string
	StudentName string
	Page        int
	PageSize    int
}

// EvaluationRepository persists grading runs.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id string) (models.Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, int64, error)
	ListAll(ctx context.Context, label string) ([]models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs the gorm-backed repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) GetByID(ctx context.Context, id string) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).First(&evaluation, "id = ?", id).Error; err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, int64, error) {
	query := r.filtered(ctx, filter.Label, filter.StudentName)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var items []models.Evaluation
	if err := query.Order("created_at DESC, id ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *evaluationRepository) ListAll(ctx context.Context, label string) ([]models.Evaluation, error) {
	var items []models.Evaluation
	if err := r.filtered(ctx, label, "").Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *evaluationRepository) filtered(ctx context.Context, label, student string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{})
	if label = strings.TrimSpace(label); label != "" {
		query = query.Where("label = ?", label)
	}
	if student = strings.TrimSpace(student); student != "" {
		query = query.Where("LOWER(student_name) LIKE ?", "%"+strings.ToLower(student)+"%")
	}
	return query
}
