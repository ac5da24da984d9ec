package postgres

import (
	"context"
	"errors"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	// Append assigns the next message_index (0-based) and stores m.
	Append(ctx context.Context, m *models.InterviewMessage) error
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewMessage, error)
	// SimilarUserAnswers returns the user's past answers nearest to vec.
	SimilarUserAnswers(ctx context.Context, userID string, vec pgvector.Vector, limit int) ([]models.InterviewMessage, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Append(ctx context.Context, m *models.InterviewMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSession(tx, m.SessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrNotFound
			}
			return err
		}
		var next int
		if err := tx.Model(&models.InterviewMessage{}).
			Where("session_id = ?", m.SessionID).
			Select("COALESCE(MAX(message_index) + 1, 0)").
			Scan(&next).Error; err != nil {
			return err
		}
		m.MessageIndex = next
		return tx.Create(m).Error
	})
}

func (r *messageRepo) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewMessage, error) {
	var rows []models.InterviewMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("message_index ASC").
		Find(&rows).Error
	return rows, err
}

func (r *messageRepo) SimilarUserAnswers(ctx context.Context, userID string, vec pgvector.Vector, limit int) ([]models.InterviewMessage, error) {
	if limit <= 0 {
		limit = 3
	}
	var rows []models.InterviewMessage
	err := r.db.WithContext(ctx).
		Joins("JOIN interview_sessions s ON s.id = interview_messages.session_id").
		Where("s.user_id = ? AND interview_messages.type = ? AND interview_messages.embedding IS NOT NULL", userID, models.MessageUser).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "interview_messages.embedding <=> ?", Vars: []any{vec}}}).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
