package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockingClause = clause.Locking{Strength: "UPDATE"}

type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetByID(ctx context.Context, id string) (*models.InterviewSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.InterviewSession, error)
	Update(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.InterviewSession, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// Update applies patch and returns the stored row. It returns
// utils.ErrNotFound when id is unknown and utils.ErrStale when
// patch.IfUpdatedAt no longer matches.
func (r *sessionRepo) Update(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.InterviewSession, error) {
	cols := map[string]any{"updated_at": now}
	if patch.Title != nil {
		cols["title"] = *patch.Title
	}
	if patch.Status != nil {
		cols["status"] = *patch.Status
	}
	if patch.Company != nil {
		cols["company"] = *patch.Company
	}
	if patch.Difficulty != nil {
		cols["difficulty"] = *patch.Difficulty
	}
	if patch.Duration != nil {
		cols["duration"] = *patch.Duration
	}
	if patch.TotalQuestions != nil {
		cols["total_questions"] = *patch.TotalQuestions
	}
	if patch.CurrentQuestionIndex != nil {
		cols["current_question_index"] = *patch.CurrentQuestionIndex
	}
	if patch.CustomInstructions != nil {
		cols["custom_instructions"] = *patch.CustomInstructions
	}
	if patch.StartedAt != nil {
		cols["started_at"] = patch.StartedAt.UTC()
	}
	if patch.CompletedAt != nil {
		cols["completed_at"] = patch.CompletedAt.UTC()
	}

	var out models.InterviewSession
	q := r.db.WithContext(ctx).
		Model(&out).
		Clauses(clause.Returning{}).
		Where("id = ?", id)
	if patch.IfUpdatedAt != nil {
		q = q.Where("updated_at = ?", patch.IfUpdatedAt.UTC())
	}

	res := q.Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if patch.IfUpdatedAt == nil {
			return nil, utils.ErrNotFound
		}
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, utils.ErrStale
	}
	return &out, nil
}
