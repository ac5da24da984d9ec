package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/gemini"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

type MessageService interface {
	// Create appends m at the end of the session transcript.
	Create(ctx context.Context, m *models.InterviewMessage) (*models.InterviewMessage, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewMessage, error)
}

type messageService struct {
	messages pgrepo.MessageRepository
	cache    cache.Cache
	embedder gemini.Embedder
	log      *logrus.Logger
}

// NewMessageService stores user answers with an embedding when embedder is
// not nil.
func NewMessageService(messages pgrepo.MessageRepository, c cache.Cache, embedder gemini.Embedder, log *logrus.Logger) MessageService {
	if c == nil {
		c = cache.Nop{}
	}
	return &messageService{messages: messages, cache: c, embedder: embedder, log: log}
}

func (s *messageService) Create(ctx context.Context, m *models.InterviewMessage) (*models.InterviewMessage, error) {
	const op = "MessageService.Create"

	if m == nil || m.SessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "sessionId is required", nil)
	}
	switch m.Type {
	case models.MessageSystem, models.MessageUser, models.MessageAssistant:
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid message type", nil)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	if s.embedder != nil && m.Type == models.MessageUser && m.Embedding == nil && strings.TrimSpace(m.Content) != "" {
		vec, err := s.embedder.Embed(ctx, m.Content)
		if err != nil {
			s.log.WithError(err).WithField("session_id", m.SessionID).Warn("embed message failed")
		} else if len(vec) == models.EmbeddingDims {
			v := pgvector.NewVector(vec)
			m.Embedding = &v
		}
	}

	err := s.messages.Append(ctx, m)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to create message", err)
	}
	invalidateConversation(ctx, s.cache, m.SessionID)
	return m, nil
}

func (s *messageService) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewMessage, error) {
	const op = "MessageService.ListBySession"

	rows, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	if rows == nil {
		rows = []models.InterviewMessage{}
	}
	return rows, nil
}
