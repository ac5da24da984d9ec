package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/metrics"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/stream"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	CommandAnswerSubmitted = "answer_submitted"
	CommandSessionEnd      = "session_end"
)

const (
	transportSSE = "sse"
	transportWS  = "ws"
)

type StreamConfig struct {
	Heartbeat     time.Duration
	QuestionDelay time.Duration
}

type StreamHandler struct {
	sessions  services.SessionService
	interview services.InterviewService
	eventLog  services.EventLogService
	broker    events.Broker
	metrics   *metrics.Metrics
	log       *logrus.Logger
	cfg       StreamConfig
}

func NewStreamHandler(
	sessions services.SessionService,
	interview services.InterviewService,
	eventLog services.EventLogService,
	broker events.Broker,
	m *metrics.Metrics,
	log *logrus.Logger,
	cfg StreamConfig,
) *StreamHandler {
	return &StreamHandler{
		sessions:  sessions,
		interview: interview,
		eventLog:  eventLog,
		broker:    broker,
		metrics:   m,
		log:       log,
		cfg:       cfg,
	}
}

type CommandRequest struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	SessionID string          `json:"sessionId"`
}

// channel builds the push task for one connection of the caller.
func (h *StreamHandler) channel(caller models.Caller, sessionID, transport string) *stream.Channel {
	return &stream.Channel{
		SessionID:     sessionID,
		Heartbeat:     h.cfg.Heartbeat,
		QuestionDelay: h.cfg.QuestionDelay,
		Broker:        h.broker,
		Logger:        h.log,
		Ask: func(ctx context.Context) (*stream.Event, error) {
			q, err := h.interview.AskNextQuestion(ctx, sessionID)
			if err != nil || q == nil {
				return nil, err
			}
			return &stream.Event{
				Type: stream.EventQuestionGenerated,
				Data: gin.H{"question": q},
			}, nil
		},
		Observe: func(ev stream.Event) {
			h.metrics.StreamEvent(transport, ev.Type)
			if ev.Type == stream.EventHeartbeat || h.eventLog == nil {
				return
			}
			h.eventLog.Record(context.Background(), sessionID, caller.ID, transport, ev.Type, ev.Data)
		},
	}
}

// Events serves GET /stream as Server-Sent Events.
func (h *StreamHandler) Events(c *gin.Context) {
	const op = "StreamHandler.Events"

	caller, found := requireCaller(c)
	if !found {
		return
	}
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "sessionId is required", nil))
		return
	}
	if _, err := h.sessions.GetOwned(c.Request.Context(), caller, sessionID); err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.metrics.ChannelOpened(transportSSE)
	defer h.metrics.ChannelClosed(transportSSE)

	ch := h.channel(caller, sessionID, transportSSE)
	err := ch.Run(c.Request.Context(), func(ev stream.Event) error {
		c.SSEvent("", ev)
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.WithFields(logrus.Fields{"session_id": sessionID, "user_id": caller.ID}).WithError(err).Warn("sse channel ended")
	}
}

// Command serves POST /stream.
func (h *StreamHandler) Command(c *gin.Context) {
	const op = "StreamHandler.Command"

	caller, found := requireCaller(c)
	if !found {
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	data, err := h.dispatch(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, data)
}

// dispatch runs one client command. Unknown types are acknowledged.
func (h *StreamHandler) dispatch(ctx context.Context, caller models.Caller, req CommandRequest) (any, error) {
	const op = "StreamHandler.dispatch"

	switch req.Type {
	case CommandAnswerSubmitted:
		var in services.AnswerInput
		if len(req.Payload) > 0 && string(req.Payload) != "null" {
			if err := json.Unmarshal(req.Payload, &in); err != nil {
				return nil, utils.E(utils.CodeInvalidArgument, op, "invalid answer payload", err)
			}
		}
		fb, err := h.interview.SubmitAnswer(ctx, caller, req.SessionID, in)
		if err != nil {
			return nil, err
		}
		return gin.H{"feedback": fb}, nil

	case CommandSessionEnd:
		sum, err := h.interview.EndSession(ctx, caller, req.SessionID)
		if err != nil {
			return nil, err
		}
		return gin.H{"summary": sum}, nil

	default:
		return gin.H{"acknowledged": true, "type": req.Type}, nil
	}
}
