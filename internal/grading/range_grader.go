package grading

import (
	"context"
	"math/rand/v2"
)

// Score ranges used by RangeGrader, inclusive.
var (
	CommunicationRange = [2]int{7, 9}
	TechnicalRange     = [2]int{6, 8}
	CompletenessRange  = [2]int{6, 8}
)

// RangeGrader draws sub-scores uniformly from fixed ranges. It is the
// placeholder used when no model-backed grader is configured.
type RangeGrader struct {
	// IntN returns a value in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

func NewRangeGrader() *RangeGrader {
	return &RangeGrader{IntN: rand.IntN}
}

func (g *RangeGrader) Grade(_ context.Context, _ Question, _ string) (Feedback, error) {
	return finalize(Feedback{
		CommunicationScore: g.draw(CommunicationRange),
		TechnicalScore:     g.draw(TechnicalRange),
		CompletenessScore:  g.draw(CompletenessRange),
		Strengths: []string{
			"Clear structure in the answer",
			"Relevant examples from experience",
		},
		Weaknesses: []string{
			"Could go deeper on technical trade-offs",
		},
		Suggestions: []string{
			"Use the STAR method to frame behavioral answers",
			"Quantify the impact of your work where possible",
		},
	}), nil
}

func (g *RangeGrader) draw(r [2]int) int {
	intN := g.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return r[0] + intN(r[1]-r[0]+1)
}

// StaticGrader always returns the same sub-scores. Deterministic double for
// tests and local development.
type StaticGrader struct {
	Communication, Technical, Completeness int
}

func (g StaticGrader) Grade(_ context.Context, _ Question, _ string) (Feedback, error) {
	return finalize(Feedback{
		CommunicationScore: g.Communication,
		TechnicalScore:     g.Technical,
		CompletenessScore:  g.Completeness,
	}), nil
}
