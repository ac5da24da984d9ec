package grading

import (
	"math"
	"time"

	"github.com/applymint/applymint/internal/models"
)

type CategoryScores struct {
	Communication float64 `json:"communication"`
	Technical     float64 `json:"technical"`
	Completeness  float64 `json:"completeness"`
}

type TypeBreakdown struct {
	Count        int     `json:"count"`
	Answered     int     `json:"answered"`
	AverageScore float64 `json:"averageScore"`
}

// Summary aggregates every response of a session.
type Summary struct {
	SessionID         string                   `json:"sessionId"`
	TotalQuestions    int                      `json:"totalQuestions"`
	AnsweredQuestions int                      `json:"answeredQuestions"`
	AverageScores     CategoryScores           `json:"averageScores"`
	OverallScore      float64                  `json:"overallScore"`
	ByType            map[string]TypeBreakdown `json:"byType"`
	Strengths         []string                 `json:"strengths"`
	Improvements      []string                 `json:"improvements"`
	CompletedAt       time.Time                `json:"completedAt"`
}

const summaryHighlights = 3

// Summarize computes per-category averages over responses. Questions without
// a response count toward TotalQuestions only.
func Summarize(sessionID string, questions []models.InterviewQuestion, responses []models.InterviewResponse, now time.Time) Summary {
	s := Summary{
		SessionID:      sessionID,
		TotalQuestions: len(questions),
		ByType:         map[string]TypeBreakdown{},
		Strengths:      []string{},
		Improvements:   []string{},
		CompletedAt:    now.UTC(),
	}

	typeOf := make(map[string]string, len(questions))
	for _, q := range questions {
		typeOf[q.ID] = q.Type
		b := s.ByType[q.Type]
		b.Count++
		s.ByType[q.Type] = b
	}

	var comm, tech, comp, overall float64
	typeTotals := map[string]float64{}
	seenStrength := map[string]bool{}
	seenImprove := map[string]bool{}

	for _, r := range responses {
		s.AnsweredQuestions++
		comm += float64(r.CommunicationScore)
		tech += float64(r.TechnicalScore)
		comp += float64(r.CompletenessScore)
		overall += float64(r.OverallScore)

		if t, ok := typeOf[r.QuestionID]; ok {
			b := s.ByType[t]
			b.Answered++
			s.ByType[t] = b
			typeTotals[t] += float64(r.OverallScore)
		}

		s.Strengths = appendUnique(s.Strengths, seenStrength, r.Strengths)
		s.Improvements = appendUnique(s.Improvements, seenImprove, r.Suggestions)
	}

	if n := float64(s.AnsweredQuestions); n > 0 {
		s.AverageScores = CategoryScores{
			Communication: round1(comm / n),
			Technical:     round1(tech / n),
			Completeness:  round1(comp / n),
		}
		s.OverallScore = round1(overall / n)
	}
	for t, b := range s.ByType {
		if b.Answered > 0 {
			b.AverageScore = round1(typeTotals[t] / float64(b.Answered))
			s.ByType[t] = b
		}
	}
	if s.TotalQuestions < s.AnsweredQuestions {
		s.TotalQuestions = s.AnsweredQuestions
	}
	return s
}

func appendUnique(dst []string, seen map[string]bool, src []string) []string {
	for _, v := range src {
		if len(dst) >= summaryHighlights {
			return dst
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
