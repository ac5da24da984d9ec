package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StreamEventLog is one event delivered on a session's stream channel,
// kept in Mongo for audit until ExpiresAt.
type StreamEventLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"sessionId"`
	UserID    string             `bson:"user_id" json:"userId"`
	Type      string             `bson:"type" json:"type"`
	Payload   string             `bson:"payload" json:"payload"`     // raw JSON
	Transport string             `bson:"transport" json:"transport"` // sse|ws|broker

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
}
