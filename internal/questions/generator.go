// Package questions produces the next interview question for a session.
package questions

import (
	"context"
	"errors"

	"github.com/applymint/applymint/internal/models"
	"github.com/google/uuid"
)

var ErrNoQuestion = errors.New("no question available")

// Generated is a question that has not been stored yet.
type Generated struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type"`
	Question             string   `json:"question"`
	Context              string   `json:"context,omitempty"`
	ExpectedAnswerPoints []string `json:"expectedAnswerPoints"`
	Difficulty           string   `json:"difficulty"`
	TimeLimit            int      `json:"timeLimit"`
}

type Generator interface {
	// Next returns the question to ask after asked, which is in order.
	Next(ctx context.Context, s *models.InterviewSession, asked []models.InterviewQuestion) (Generated, error)
}

func NewID() string {
	return models.QuestionIDPrefix + uuid.NewString()
}

var defaultTypes = []string{models.QuestionTechnical, models.QuestionBehavioral, models.QuestionSituational}

// TypeFor picks the type of the n-th question (0-based), rotating through
// the session's requested types.
func TypeFor(s *models.InterviewSession, n int) string {
	types := make([]string, 0, 3)
	for _, t := range s.RequestedQuestionTypes() {
		switch t {
		case models.QuestionTechnical, models.QuestionBehavioral, models.QuestionSituational:
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = defaultTypes
	}
	return types[n%len(types)]
}
