// Package stream runs the per-connection server push channel of an
// interview session.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/applymint/applymint/internal/events"
	"github.com/sirupsen/logrus"
)

const (
	EventConnected         = "connected"
	EventHeartbeat         = "heartbeat"
	EventQuestionGenerated = "question_generated"
	EventFeedback          = "feedback"
	EventSessionCompleted  = "session_completed"
	EventTranscription     = "transcription_completed"
	EventError             = "error"
)

const (
	DefaultHeartbeat     = 30 * time.Second
	DefaultQuestionDelay = 2 * time.Second
)

type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Sink delivers one event to the client. An error ends the channel.
type Sink func(Event) error

// AskFunc produces the delayed question event. A nil event means nothing
// is asked.
type AskFunc func(ctx context.Context) (*Event, error)

// Channel is a cancellable task. All timers and the broker subscription
// belong to Run and are released when it returns; the sink is only ever
// called from Run's goroutine.
type Channel struct {
	SessionID     string
	Heartbeat     time.Duration
	QuestionDelay time.Duration

	Ask    AskFunc
	Broker events.Broker
	// Observe sees every event after it was delivered.
	Observe func(Event)
	Logger  *logrus.Logger

	now func() time.Time
}

type askResult struct {
	ev  *Event
	err error
}

// Run streams until ctx is cancelled or the sink fails.
func (c *Channel) Run(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.QuestionDelay <= 0 {
		c.QuestionDelay = DefaultQuestionDelay
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	log := c.Logger.WithField("session_id", c.SessionID)

	emit := func(ev Event) error {
		if ev.SessionID == "" {
			ev.SessionID = c.SessionID
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = c.now()
		}
		if err := sink(ev); err != nil {
			return err
		}
		if c.Observe != nil {
			c.Observe(ev)
		}
		return nil
	}

	if err := emit(Event{Type: EventConnected}); err != nil {
		return err
	}

	var brokerCh <-chan events.Message
	if c.Broker != nil {
		ch, unsubscribe, err := c.Broker.Subscribe(ctx, c.SessionID)
		if err != nil {
			log.WithError(err).Warn("session event subscription failed")
		} else {
			defer unsubscribe()
			brokerCh = ch
		}
	}

	heartbeat := time.NewTicker(c.Heartbeat)
	defer heartbeat.Stop()

	delay := time.NewTimer(c.QuestionDelay)
	defer delay.Stop()

	asked := make(chan askResult, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-heartbeat.C:
			if err := emit(Event{Type: EventHeartbeat}); err != nil {
				return err
			}

		case <-delay.C:
			if c.Ask == nil {
				continue
			}
			go func() {
				ev, err := c.Ask(ctx)
				asked <- askResult{ev: ev, err: err}
			}()

		case res := <-asked:
			if res.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(res.err).Error("question generation failed")
				if err := emit(Event{Type: EventError, Data: map[string]string{"message": "failed to generate question"}}); err != nil {
					return err
				}
				continue
			}
			if res.ev != nil {
				if err := emit(*res.ev); err != nil {
					return err
				}
			}

		case msg, ok := <-brokerCh:
			if !ok {
				brokerCh = nil
				continue
			}
			ev := Event{Type: msg.Type, SessionID: msg.SessionID, Timestamp: msg.Timestamp}
			if len(msg.Data) > 0 && string(msg.Data) != "null" {
				ev.Data = json.RawMessage(msg.Data)
			}
			if err := emit(ev); err != nil {
				return err
			}
		}
	}
}
