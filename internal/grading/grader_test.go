package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/applymint/applymint/internal/models"
	"github.com/lib/pq"
)

func TestOverallRoundsMean(t *testing.T) {
	cases := []struct {
		c, t, k int
		want    int
	}{
		{8, 7, 7, 7},
		{9, 8, 8, 8},
		{7, 6, 6, 6},
		{9, 9, 8, 9},
		{8, 8, 7, 8},
		{0, 0, 0, 0},
		{10, 10, 10, 10},
	}
	for _, tc := range cases {
		if got := Overall(tc.c, tc.t, tc.k); got != tc.want {
			t.Errorf("Overall(%d,%d,%d) = %d, want %d", tc.c, tc.t, tc.k, got, tc.want)
		}
	}
}

func TestRangeGraderStaysInRange(t *testing.T) {
	g := NewRangeGrader()
	for i := 0; i < 200; i++ {
		f, err := g.Grade(context.Background(), Question{}, "answer")
		if err != nil {
			t.Fatalf("Grade: %v", err)
		}
		if f.CommunicationScore < 7 || f.CommunicationScore > 9 {
			t.Fatalf("communication %d out of range", f.CommunicationScore)
		}
		if f.TechnicalScore < 6 || f.TechnicalScore > 8 {
			t.Fatalf("technical %d out of range", f.TechnicalScore)
		}
		if f.CompletenessScore < 6 || f.CompletenessScore > 8 {
			t.Fatalf("completeness %d out of range", f.CompletenessScore)
		}
		if f.OverallScore != Overall(f.CommunicationScore, f.TechnicalScore, f.CompletenessScore) {
			t.Fatalf("overall %d does not match sub-scores", f.OverallScore)
		}
	}
}

func TestRangeGraderBounds(t *testing.T) {
	low := &RangeGrader{IntN: func(int) int { return 0 }}
	f, _ := low.Grade(context.Background(), Question{}, "")
	if f.CommunicationScore != 7 || f.TechnicalScore != 6 || f.CompletenessScore != 6 {
		t.Errorf("low draw = %+v", f)
	}

	high := &RangeGrader{IntN: func(n int) int { return n - 1 }}
	f, _ = high.Grade(context.Background(), Question{}, "")
	if f.CommunicationScore != 9 || f.TechnicalScore != 8 || f.CompletenessScore != 8 {
		t.Errorf("high draw = %+v", f)
	}
}

func TestStaticGrader(t *testing.T) {
	f, err := StaticGrader{Communication: 8, Technical: 7, Completeness: 7}.Grade(context.Background(), Question{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if f.OverallScore != 7 {
		t.Errorf("OverallScore = %d, want 7", f.OverallScore)
	}
	if f.Strengths == nil || f.Weaknesses == nil || f.Suggestions == nil {
		t.Error("lists should be non-nil so they encode as []")
	}
}

type fakeLLM struct {
	out string
	err error
}

func (f fakeLLM) Generate(context.Context, string) (string, error)     { return f.out, f.err }
func (f fakeLLM) GenerateJSON(context.Context, string) (string, error) { return f.out, f.err }
func (f fakeLLM) Close() error                                         { return nil }

func TestLLMGraderClampsAndRecomputesOverall(t *testing.T) {
	g := NewLLMGrader(fakeLLM{out: "```json\n{\"communicationScore\": 12, \"technicalScore\": 7, \"completenessScore\": -1, \"overallScore\": 10, \"strengths\": [\"clear\"]}\n```"})
	f, err := g.Grade(context.Background(), Question{Text: "What is a goroutine?"}, "a lightweight thread")
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if f.CommunicationScore != 10 || f.CompletenessScore != 0 {
		t.Errorf("scores not clamped: %+v", f)
	}
	if f.OverallScore != Overall(10, 7, 0) {
		t.Errorf("OverallScore = %d, want %d", f.OverallScore, Overall(10, 7, 0))
	}
	if len(f.Strengths) != 1 || f.Strengths[0] != "clear" {
		t.Errorf("Strengths = %v", f.Strengths)
	}
}

func TestLLMGraderErrors(t *testing.T) {
	if _, err := NewLLMGrader(fakeLLM{err: errors.New("quota")}).Grade(context.Background(), Question{}, "x"); err == nil {
		t.Error("expected provider error")
	}
	if _, err := NewLLMGrader(fakeLLM{out: "not json"}).Grade(context.Background(), Question{}, "x"); err == nil {
		t.Error("expected decode error")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	questions := []models.InterviewQuestion{
		{ID: "q_1", Type: models.QuestionTechnical, Order: 1},
		{ID: "q_2", Type: models.QuestionBehavioral, Order: 2},
		{ID: "q_3", Type: models.QuestionTechnical, Order: 3},
	}
	responses := []models.InterviewResponse{
		{QuestionID: "q_1", CommunicationScore: 8, TechnicalScore: 7, CompletenessScore: 7, OverallScore: 7, Strengths: pq.StringArray{"clear"}, Suggestions: pq.StringArray{"use STAR"}},
		{QuestionID: "q_2", CommunicationScore: 9, TechnicalScore: 8, CompletenessScore: 8, OverallScore: 8, Strengths: pq.StringArray{"clear", "concise"}},
	}

	s := Summarize("s1", questions, responses, now)
	if s.SessionID != "s1" {
		t.Errorf("SessionID = %q", s.SessionID)
	}
	if s.TotalQuestions != 3 || s.AnsweredQuestions != 2 {
		t.Errorf("counts = %d/%d", s.AnsweredQuestions, s.TotalQuestions)
	}
	if s.AverageScores.Communication != 8.5 || s.AverageScores.Technical != 7.5 || s.AverageScores.Completeness != 7.5 {
		t.Errorf("AverageScores = %+v", s.AverageScores)
	}
	if s.OverallScore != 7.5 {
		t.Errorf("OverallScore = %v", s.OverallScore)
	}
	tech := s.ByType[models.QuestionTechnical]
	if tech.Count != 2 || tech.Answered != 1 || tech.AverageScore != 7 {
		t.Errorf("technical breakdown = %+v", tech)
	}
	if len(s.Strengths) != 2 {
		t.Errorf("Strengths should be deduplicated: %v", s.Strengths)
	}
	if !s.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v", s.CompletedAt)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("s1", nil, nil, time.Now())
	if s.OverallScore != 0 || s.AnsweredQuestions != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if s.OverallScore < 0 || s.OverallScore > 10 {
		t.Errorf("OverallScore out of range: %v", s.OverallScore)
	}
	if s.Strengths == nil || s.Improvements == nil {
		t.Error("lists should be non-nil")
	}
}
