package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	QuestionTechnical   = "technical"
	QuestionBehavioral  = "behavioral"
	QuestionSituational = "situational"
)

// QuestionIDPrefix marks generated question ids ("q_<uuid>").
const QuestionIDPrefix = "q_"

type InterviewQuestion struct {
	ID        string `gorm:"column:id;type:text;primaryKey" json:"id"`
	SessionID string `gorm:"column:session_id;type:uuid;not null;uniqueIndex:uniq_interview_questions_session_order,priority:1" json:"sessionId"`

	Type                 string         `gorm:"column:type;type:text;not null" json:"type"` // technical|behavioral|situational
	Question             string         `gorm:"column:question;type:text;not null" json:"question"`
	Context              *string        `gorm:"column:context;type:text" json:"context,omitempty"`
	ExpectedAnswerPoints pq.StringArray `gorm:"column:expected_answer_points;type:text[]" json:"expectedAnswerPoints"`
	Difficulty           string         `gorm:"column:difficulty;type:text" json:"difficulty"`
	TimeLimit            int            `gorm:"column:time_limit;type:integer" json:"timeLimit"` // seconds
	Order                int            `gorm:"column:order_index;type:integer;not null;uniqueIndex:uniq_interview_questions_session_order,priority:2" json:"order"`

	AskedAt    *time.Time `gorm:"column:asked_at;type:timestamptz" json:"askedAt,omitempty"`
	AnsweredAt *time.Time `gorm:"column:answered_at;type:timestamptz" json:"answeredAt,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
}

func (InterviewQuestion) TableName() string { return "interview_questions" }

type QuestionPatch struct {
	Context    *string
	AskedAt    *time.Time
	AnsweredAt *time.Time
	TimeLimit  *int
}
