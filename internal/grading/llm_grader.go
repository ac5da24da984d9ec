package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/applymint/applymint/internal/providers/llm"
)

// LLMGrader asks a generative model for a JSON evaluation.
type LLMGrader struct {
	llm llm.Provider
}

func NewLLMGrader(p llm.Provider) *LLMGrader {
	return &LLMGrader{llm: p}
}

type llmFeedback struct {
	Communication  int      `json:"communicationScore"`
	Technical      int      `json:"technicalScore"`
	Completeness   int      `json:"completenessScore"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Suggestions    []string `json:"suggestions"`
	ImprovedAnswer string   `json:"improvedAnswer"`
}

func (g *LLMGrader) Grade(ctx context.Context, q Question, answer string) (Feedback, error) {
	raw, err := g.llm.GenerateJSON(ctx, gradePrompt(q, answer))
	if err != nil {
		return Feedback{}, err
	}

	var out llmFeedback
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return Feedback{}, fmt.Errorf("decode grader output: %w", err)
	}
	return finalize(Feedback{
		CommunicationScore: out.Communication,
		TechnicalScore:     out.Technical,
		CompletenessScore:  out.Completeness,
		Strengths:          out.Strengths,
		Weaknesses:         out.Weaknesses,
		Suggestions:        out.Suggestions,
		ImprovedAnswer:     out.ImprovedAnswer,
	}), nil
}

func gradePrompt(q Question, answer string) string {
	var b strings.Builder
	b.WriteString("You are a senior interviewer grading a candidate's answer.\n")
	b.WriteString("Score communication, technical accuracy and completeness from 0 to 10.\n")
	b.WriteString("Respond with JSON only, using the keys communicationScore, technicalScore, completenessScore, strengths, weaknesses, suggestions, improvedAnswer.\n\n")
	fmt.Fprintf(&b, "Question (%s, %s): %s\n", q.Type, q.Difficulty, q.Text)
	if len(q.ExpectedAnswerPoints) > 0 {
		b.WriteString("Expected points:\n")
		for _, p := range q.ExpectedAnswerPoints {
			b.WriteString("- " + p + "\n")
		}
	}
	b.WriteString("\nAnswer:\n")
	b.WriteString(answer)
	return b.String()
}

// extractJSON trims markdown fences models sometimes wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndex(s, "}"); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}
	return s
}
