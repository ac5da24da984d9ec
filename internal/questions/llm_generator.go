package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/gemini"
	"github.com/applymint/applymint/internal/providers/llm"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// AnswerIndex finds a user's earlier answers close to an embedding.
type AnswerIndex interface {
	SimilarUserAnswers(ctx context.Context, userID string, vec pgvector.Vector, limit int) ([]models.InterviewMessage, error)
}

// LLMGenerator writes questions with a generative model and falls back to
// another Generator when the model fails.
type LLMGenerator struct {
	LLM      llm.Provider
	Fallback Generator
	Logger   *logrus.Logger

	// Embedder and Answers are optional; together they add past answers to
	// the prompt.
	Embedder gemini.Embedder
	Answers  AnswerIndex
}

type llmQuestion struct {
	Question             string   `json:"question"`
	Context              string   `json:"context"`
	ExpectedAnswerPoints []string `json:"expectedAnswerPoints"`
	TimeLimit            int      `json:"timeLimit"`
}

func (g *LLMGenerator) Next(ctx context.Context, s *models.InterviewSession, asked []models.InterviewQuestion) (Generated, error) {
	typ := TypeFor(s, len(asked))

	out, err := g.generate(ctx, s, typ, asked)
	if err == nil {
		return out, nil
	}
	if g.Fallback == nil {
		return Generated{}, err
	}
	if g.Logger != nil {
		g.Logger.WithError(err).WithFields(logrus.Fields{
			"session_id": s.ID,
			"type":       typ,
		}).Warn("llm question generation failed, using bank")
	}
	return g.Fallback.Next(ctx, s, asked)
}

func (g *LLMGenerator) generate(ctx context.Context, s *models.InterviewSession, typ string, asked []models.InterviewQuestion) (Generated, error) {
	prompt := g.prompt(ctx, s, typ, asked)

	raw, err := g.LLM.GenerateJSON(ctx, prompt)
	if err != nil {
		return Generated{}, err
	}

	var q llmQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &q); err != nil {
		return Generated{}, fmt.Errorf("decode question: %w", err)
	}
	if strings.TrimSpace(q.Question) == "" {
		return Generated{}, ErrNoQuestion
	}
	if q.TimeLimit <= 0 || q.TimeLimit > 900 {
		q.TimeLimit = 180
	}
	if q.ExpectedAnswerPoints == nil {
		q.ExpectedAnswerPoints = []string{}
	}
	return Generated{
		ID:                   NewID(),
		Type:                 typ,
		Question:             strings.TrimSpace(q.Question),
		Context:              strings.TrimSpace(q.Context),
		ExpectedAnswerPoints: q.ExpectedAnswerPoints,
		Difficulty:           s.Difficulty,
		TimeLimit:            q.TimeLimit,
	}, nil
}

func (g *LLMGenerator) prompt(ctx context.Context, s *models.InterviewSession, typ string, asked []models.InterviewQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are interviewing a candidate for a %s %s position", s.Difficulty, s.JobRole)
	if s.Company != nil && *s.Company != "" {
		fmt.Fprintf(&b, " at %s", *s.Company)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Write one %s interview question.\n", typ)
	if s.CustomInstructions != nil && *s.CustomInstructions != "" {
		fmt.Fprintf(&b, "Interviewer instructions: %s\n", *s.CustomInstructions)
	}
	if len(asked) > 0 {
		b.WriteString("Do not repeat these questions:\n")
		for _, q := range asked {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
	}
	if past := g.pastAnswers(ctx, s); len(past) > 0 {
		b.WriteString("The candidate answered earlier interviews like this; probe gaps, do not repeat topics:\n")
		for _, a := range past {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	b.WriteString(`Reply with JSON: {"question": string, "context": string, "expectedAnswerPoints": [string], "timeLimit": seconds}`)
	return b.String()
}

func (g *LLMGenerator) pastAnswers(ctx context.Context, s *models.InterviewSession) []string {
	if g.Embedder == nil || g.Answers == nil {
		return nil
	}
	vec, err := g.Embedder.Embed(ctx, s.JobRole+" "+s.Difficulty)
	if err != nil {
		return nil
	}
	msgs, err := g.Answers.SimilarUserAnswers(ctx, s.UserID, pgvector.NewVector(vec), 3)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if c := strings.TrimSpace(m.Content); c != "" {
			out = append(out, truncateRunes(c, maxPastAnswerRunes))
		}
	}
	return out
}

const maxPastAnswerRunes = 300

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
