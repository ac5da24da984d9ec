package postgres

import (
	"context"
	"errors"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQuestionPending is returned by CreateNext while the latest question of
// the session has no answer.
var ErrQuestionPending = errors.New("latest question is unanswered")

type QuestionRepository interface {
	// Create stores q. A zero q.Order is replaced by the next free order
	// (1-based) for the session.
	Create(ctx context.Context, q *models.InterviewQuestion) error
	// CreateNext stores q after the latest question of the session, holding
	// the session row lock. It fails with ErrQuestionPending when that
	// question is still unanswered.
	CreateNext(ctx context.Context, q *models.InterviewQuestion) error
	GetByID(ctx context.Context, id string) (*models.InterviewQuestion, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error)
	Update(ctx context.Context, id string, patch models.QuestionPatch) (*models.InterviewQuestion, error)
}

type questionRepo struct {
	db *gorm.DB
}

func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, q *models.InterviewQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSession(tx, q.SessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrNotFound
			}
			return err
		}
		if q.Order == 0 {
			var max int
			if err := tx.Model(&models.InterviewQuestion{}).
				Where("session_id = ?", q.SessionID).
				Select("COALESCE(MAX(order_index), 0)").
				Scan(&max).Error; err != nil {
				return err
			}
			q.Order = max + 1
		}
		return tx.Create(q).Error
	})
}

func (r *questionRepo) CreateNext(ctx context.Context, q *models.InterviewQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSession(tx, q.SessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrNotFound
			}
			return err
		}
		var last models.InterviewQuestion
		err := tx.Where("session_id = ?", q.SessionID).
			Order("order_index DESC").
			Take(&last).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			q.Order = 1
		case err != nil:
			return err
		case last.AnsweredAt == nil:
			return ErrQuestionPending
		default:
			q.Order = last.Order + 1
		}
		return tx.Create(q).Error
	})
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*models.InterviewQuestion, error) {
	var q models.InterviewQuestion
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	var rows []models.InterviewQuestion
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("order_index ASC").
		Find(&rows).Error
	return rows, err
}

func (r *questionRepo) Update(ctx context.Context, id string, patch models.QuestionPatch) (*models.InterviewQuestion, error) {
	cols := map[string]any{}
	if patch.Context != nil {
		cols["context"] = *patch.Context
	}
	if patch.AskedAt != nil {
		cols["asked_at"] = patch.AskedAt.UTC()
	}
	if patch.AnsweredAt != nil {
		cols["answered_at"] = patch.AnsweredAt.UTC()
	}
	if patch.TimeLimit != nil {
		cols["time_limit"] = *patch.TimeLimit
	}
	if len(cols) == 0 {
		return r.GetByID(ctx, id)
	}

	var out models.InterviewQuestion
	res := r.db.WithContext(ctx).
		Model(&out).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrNotFound
	}
	return &out, nil
}
