// Package events fans session events out to stream channels and emits
// domain events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Message is one session event travelling between processes.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Broker publishes per-session events to every open channel of that
// session, in this process or another.
type Broker interface {
	Publish(ctx context.Context, sessionID, typ string, data any) error
	// Subscribe delivers events until cancel is called or ctx ends.
	Subscribe(ctx context.Context, sessionID string) (ch <-chan Message, cancel func(), err error)
}

func channelName(sessionID string) string {
	return "session:" + sessionID + ":events"
}

func newMessage(sessionID, typ string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, SessionID: sessionID, Data: raw, Timestamp: time.Now().UTC()}, nil
}
