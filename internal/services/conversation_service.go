package services

import (
	"context"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	conversationTTL        = 30 * time.Second
	conversationVersionTTL = time.Hour
)

func conversationKey(sessionID string) string {
	return "conversation:" + sessionID
}

func conversationVersionKey(sessionID string) string {
	return conversationKey(sessionID) + ":v"
}

// cachedConversation is stored under conversationKey. It is served only while
// Version still matches the session's version key.
type cachedConversation struct {
	Version      string               `json:"version"`
	Conversation *models.Conversation `json:"conversation"`
}

// invalidateConversation moves the session to a new cache version and drops
// the aggregate. Writers call it after their write is committed.
func invalidateConversation(ctx context.Context, c cache.Cache, sessionID string) {
	_ = c.SetJSON(ctx, conversationVersionKey(sessionID), uuid.NewString(), conversationVersionTTL)
	_ = c.Del(ctx, conversationKey(sessionID))
}

type ConversationService interface {
	// Get returns nil, nil when the session does not exist. Any failed
	// sub-fetch fails the whole call.
	Get(ctx context.Context, sessionID string) (*models.Conversation, error)
}

type conversationService struct {
	sessions  SessionService
	questions QuestionService
	responses ResponseService
	messages  MessageService
	cache     cache.Cache
	log       *logrus.Logger
}

func NewConversationService(sessions SessionService, questions QuestionService, responses ResponseService, messages MessageService, c cache.Cache, log *logrus.Logger) ConversationService {
	if c == nil {
		c = cache.Nop{}
	}
	return &conversationService{
		sessions:  sessions,
		questions: questions,
		responses: responses,
		messages:  messages,
		cache:     c,
		log:       log,
	}
}

func (s *conversationService) Get(ctx context.Context, sessionID string) (*models.Conversation, error) {
	version, versioned := s.version(ctx, sessionID)
	if versioned {
		var cached cachedConversation
		if hit, err := s.cache.GetJSON(ctx, conversationKey(sessionID), &cached); err != nil {
			s.log.WithError(err).Warn("conversation cache read failed")
		} else if hit && cached.Version == version && cached.Conversation != nil && cached.Conversation.Session != nil {
			return cached.Conversation, nil
		}
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}

	out := &models.Conversation{Session: sess}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.questions.ListBySession(gctx, sessionID)
		out.Questions = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.responses.ListBySession(gctx, sessionID)
		out.Responses = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.messages.ListBySession(gctx, sessionID)
		out.Messages = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A write during the fetch moved the version on, so this entry is never
	// served.
	if versioned {
		entry := cachedConversation{Version: version, Conversation: out}
		if err := s.cache.SetJSON(ctx, conversationKey(sessionID), entry, conversationTTL); err != nil {
			s.log.WithError(err).Warn("conversation cache write failed")
		}
	}
	return out, nil
}

// version reads the session's cache version. A missing key is version "".
// The second result is false when the cache could not be read.
func (s *conversationService) version(ctx context.Context, sessionID string) (string, bool) {
	var v string
	if _, err := s.cache.GetJSON(ctx, conversationVersionKey(sessionID), &v); err != nil {
		s.log.WithError(err).Warn("conversation cache version read failed")
		return "", false
	}
	return v, true
}
