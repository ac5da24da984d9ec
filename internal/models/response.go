package models

import (
	"time"

	"github.com/lib/pq"
)

type InterviewResponse struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QuestionID string `gorm:"column:question_id;type:text;not null;uniqueIndex" json:"questionId"`

	Answer        string  `gorm:"column:answer;type:text" json:"answer"`
	AudioURL      *string `gorm:"column:audio_url;type:text" json:"audioUrl,omitempty"`
	Transcription *string `gorm:"column:transcription;type:text" json:"transcription,omitempty"`
	Duration      int     `gorm:"column:duration;type:integer" json:"duration"` // seconds

	CommunicationScore int `gorm:"column:communication_score;type:integer" json:"communicationScore"`
	TechnicalScore     int `gorm:"column:technical_score;type:integer" json:"technicalScore"`
	CompletenessScore  int `gorm:"column:completeness_score;type:integer" json:"completenessScore"`
	OverallScore       int `gorm:"column:overall_score;type:integer" json:"overallScore"`

	Strengths      pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Weaknesses     pq.StringArray `gorm:"column:weaknesses;type:text[]" json:"weaknesses"`
	Suggestions    pq.StringArray `gorm:"column:suggestions;type:text[]" json:"suggestions"`
	ImprovedAnswer *string        `gorm:"column:improved_answer;type:text" json:"improvedAnswer,omitempty"`

	SubmittedAt time.Time `gorm:"column:submitted_at;type:timestamptz" json:"submittedAt"`
}

func (InterviewResponse) TableName() string { return "interview_responses" }
