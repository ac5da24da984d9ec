package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/applymint/applymint/internal/models"
	mongorepo "github.com/applymint/applymint/internal/repositories/mongo"
	"github.com/applymint/applymint/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	DefaultEventLimit = 200
	MaxEventLimit     = 500
)

type EventLogService interface {
	// Record keeps one delivered stream event. Failures are logged only.
	Record(ctx context.Context, sessionID, userID, transport, typ string, data any)
	List(ctx context.Context, sessionID string, limit int) ([]models.StreamEventLog, error)
}

type eventLogService struct {
	events mongorepo.EventRepository
	ttl    time.Duration
	log    *logrus.Logger
}

// NewEventLogService accepts a nil repository; Record is then a no-op and
// List reports UNAVAILABLE.
func NewEventLogService(events mongorepo.EventRepository, ttl time.Duration, log *logrus.Logger) EventLogService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &eventLogService{events: events, ttl: ttl, log: log}
}

func (s *eventLogService) Record(ctx context.Context, sessionID, userID, transport, typ string, data any) {
	if s.events == nil {
		return
	}
	payload := "null"
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			s.log.WithError(err).WithField("type", typ).Warn("encode stream event failed")
			return
		}
		payload = string(b)
	}
	now := time.Now().UTC()

	// The client may already be gone; the audit write must not depend on it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := s.events.Insert(ctx, &models.StreamEventLog{
		SessionID: sessionID,
		UserID:    userID,
		Type:      typ,
		Payload:   payload,
		Transport: transport,
		Timestamp: now,
		ExpiresAt: now.Add(s.ttl),
	}); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"type":       typ,
		}).Warn("record stream event failed")
	}
}

func (s *eventLogService) List(ctx context.Context, sessionID string, limit int) ([]models.StreamEventLog, error) {
	const op = "EventLogService.List"

	if s.events == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "event log not configured", nil)
	}
	if limit == 0 {
		limit = DefaultEventLimit
	}
	if limit < 1 || limit > MaxEventLimit {
		return nil, utils.E(utils.CodeInvalidArgument, op, "limit must be within [1, 500]", nil)
	}
	rows, err := s.events.ListBySession(ctx, sessionID, int64(limit))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list events", err)
	}
	return rows, nil
}
