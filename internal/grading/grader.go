// Package grading scores interview answers and summarizes finished sessions.
package grading

import (
	"context"
	"math"
)

// Feedback is the evaluation of one answer. OverallScore is always derived
// from the three sub-scores with Overall.
type Feedback struct {
	CommunicationScore int      `json:"communicationScore"`
	TechnicalScore     int      `json:"technicalScore"`
	CompletenessScore  int      `json:"completenessScore"`
	OverallScore       int      `json:"overallScore"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	Suggestions        []string `json:"suggestions"`
	ImprovedAnswer     string   `json:"improvedAnswer,omitempty"`
}

// Question is what a grader needs to know about the prompt being answered.
type Question struct {
	ID                   string
	Type                 string
	Text                 string
	Difficulty           string
	ExpectedAnswerPoints []string
}

type Grader interface {
	Grade(ctx context.Context, q Question, answer string) (Feedback, error)
}

// Overall is round(mean(communication, technical, completeness)).
func Overall(communication, technical, completeness int) int {
	return int(math.Round(float64(communication+technical+completeness) / 3))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// finalize clamps sub-scores and recomputes the overall score.
func finalize(f Feedback) Feedback {
	f.CommunicationScore = clampScore(f.CommunicationScore)
	f.TechnicalScore = clampScore(f.TechnicalScore)
	f.CompletenessScore = clampScore(f.CompletenessScore)
	f.OverallScore = Overall(f.CommunicationScore, f.TechnicalScore, f.CompletenessScore)
	if f.Strengths == nil {
		f.Strengths = []string{}
	}
	if f.Weaknesses == nil {
		f.Weaknesses = []string{}
	}
	if f.Suggestions == nil {
		f.Suggestions = []string{}
	}
	return f
}
