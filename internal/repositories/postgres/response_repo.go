package postgres

import (
	"context"
	"errors"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when a question already has a response.
var ErrDuplicate = errors.New("duplicate")

type ResponseRepository interface {
	Create(ctx context.Context, r *models.InterviewResponse) error
	GetByQuestion(ctx context.Context, questionID string) (*models.InterviewResponse, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error)
}

type responseRepo struct {
	db *gorm.DB
}

func NewResponseRepo(db *gorm.DB) ResponseRepository {
	return &responseRepo{db: db}
}

func (r *responseRepo) Create(ctx context.Context, row *models.InterviewResponse) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *responseRepo) GetByQuestion(ctx context.Context, questionID string) (*models.InterviewResponse, error) {
	var row models.InterviewResponse
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListBySession joins through questions so responses come back in question
// order.
func (r *responseRepo) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	var rows []models.InterviewResponse
	err := r.db.WithContext(ctx).
		Joins("JOIN interview_questions q ON q.id = interview_responses.question_id").
		Where("q.session_id = ?", sessionID).
		Order("q.order_index ASC").
		Find(&rows).Error
	return rows, err
}
