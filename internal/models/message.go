package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const (
	MessageSystem    = "system"
	MessageUser      = "user"
	MessageAssistant = "assistant"
)

// EmbeddingDims matches the vector column width.
const EmbeddingDims = 768

type InterviewMessage struct {
	ID           string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID    string `gorm:"column:session_id;type:uuid;not null;uniqueIndex:uniq_interview_messages_session_index,priority:1" json:"sessionId"`
	MessageIndex int    `gorm:"column:message_index;type:integer;not null;uniqueIndex:uniq_interview_messages_session_index,priority:2" json:"messageIndex"`

	Type          string  `gorm:"column:type;type:text;not null" json:"type"` // system|user|assistant
	Content       string  `gorm:"column:content;type:text" json:"content"`
	QuestionID    *string `gorm:"column:question_id;type:text" json:"questionId,omitempty"`
	AudioURL      *string `gorm:"column:audio_url;type:text" json:"audioUrl,omitempty"`
	Transcription *string `gorm:"column:transcription;type:text" json:"transcription,omitempty"`

	Metadata  datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
}

func (InterviewMessage) TableName() string { return "interview_messages" }

// Conversation is the full read model of one session.
type Conversation struct {
	Session   *InterviewSession   `json:"session"`
	Messages  []InterviewMessage  `json:"messages"`
	Questions []InterviewQuestion `json:"questions"`
	Responses []InterviewResponse `json:"responses"`
}
