package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
	StatusCancelled SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	StatusPending: {StatusActive, StatusCancelled},
	StatusActive:  {StatusCompleted, StatusFailed, StatusCancelled},
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses have no outgoing transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a session may move from s to next.
// Staying in the same status is always allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return true
	}
	for _, to := range sessionTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

const (
	ModeText  = "text"
	ModeVoice = "voice"

	DefaultDifficulty     = "mid"
	DefaultDuration       = 30
	DefaultTotalQuestions = 5
)

type InterviewSession struct {
	ID     string        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID string        `gorm:"column:user_id;type:uuid;index:idx_interview_sessions_user_created,priority:1" json:"userId"`
	Title  string        `gorm:"column:title;type:text;not null" json:"title"`
	Mode   string        `gorm:"column:mode;type:text;not null" json:"mode"` // text|voice
	Status SessionStatus `gorm:"column:status;type:text;not null;default:pending" json:"status"`

	JobRole    string  `gorm:"column:job_role;type:text;not null" json:"jobRole"`
	Company    *string `gorm:"column:company;type:text" json:"company,omitempty"`
	Difficulty string  `gorm:"column:difficulty;type:text;not null;default:mid" json:"difficulty"` // junior|mid|senior|...
	Duration   int     `gorm:"column:duration;type:integer;not null;default:30" json:"duration"`   // minutes

	TotalQuestions       int `gorm:"column:total_questions;type:integer;not null;default:5" json:"totalQuestions"`
	CurrentQuestionIndex int `gorm:"column:current_question_index;type:integer;not null;default:0" json:"currentQuestionIndex"`

	CustomInstructions *string        `gorm:"column:custom_instructions;type:text" json:"customInstructions,omitempty"`
	QuestionTypes      datatypes.JSON `gorm:"column:question_types;type:jsonb" json:"questionTypes,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at;type:timestamptz" json:"startedAt"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completedAt"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;index:idx_interview_sessions_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamptz" json:"updatedAt"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }

// SessionPatch carries the mutable subset of a session. Nil fields are left
// untouched.
type SessionPatch struct {
	Title                *string
	Status               *SessionStatus
	Company              *string
	Difficulty           *string
	Duration             *int
	TotalQuestions       *int
	CurrentQuestionIndex *int
	CustomInstructions   *string
	StartedAt            *time.Time
	CompletedAt          *time.Time

	// IfUpdatedAt turns the update into a conditional write: it only applies
	// when the stored updated_at still equals this value.
	IfUpdatedAt *time.Time
}

// Empty reports whether the patch changes nothing.
func (p SessionPatch) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Company == nil && p.Difficulty == nil &&
		p.Duration == nil && p.TotalQuestions == nil && p.CurrentQuestionIndex == nil &&
		p.CustomInstructions == nil && p.StartedAt == nil && p.CompletedAt == nil
}

// RequestedQuestionTypes decodes QuestionTypes. Malformed JSON yields nil.
func (s *InterviewSession) RequestedQuestionTypes() []string {
	if len(s.QuestionTypes) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(s.QuestionTypes, &out); err != nil {
		return nil
	}
	return out
}
