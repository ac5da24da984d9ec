package questions

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/applymint/applymint/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var defaultBank []byte

type bankEntry struct {
	Question   string   `yaml:"question"`
	Context    string   `yaml:"context"`
	Points     []string `yaml:"points"`
	Difficulty []string `yaml:"difficulty"`
	TimeLimit  int      `yaml:"timeLimit"`
}

func (e bankEntry) fits(difficulty string) bool {
	return len(e.Difficulty) == 0 || slices.Contains(e.Difficulty, difficulty)
}

// BankGenerator draws questions from a fixed YAML bank.
type BankGenerator struct {
	bank map[string][]bankEntry
}

// NewBankGenerator parses raw, or the embedded bank when raw is empty.
func NewBankGenerator(raw []byte) (*BankGenerator, error) {
	if len(raw) == 0 {
		raw = defaultBank
	}
	bank := map[string][]bankEntry{}
	if err := yaml.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for t, entries := range bank {
		if len(entries) == 0 {
			delete(bank, t)
		}
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	return &BankGenerator{bank: bank}, nil
}

func (g *BankGenerator) Next(_ context.Context, s *models.InterviewSession, asked []models.InterviewQuestion) (Generated, error) {
	typ := TypeFor(s, len(asked))
	entries := g.bank[typ]
	if len(entries) == 0 {
		for _, t := range defaultTypes {
			if len(g.bank[t]) > 0 {
				typ, entries = t, g.bank[t]
				break
			}
		}
	}
	if len(entries) == 0 {
		return Generated{}, ErrNoQuestion
	}

	seen := make(map[string]bool, len(asked))
	for _, q := range asked {
		seen[q.Question] = true
	}

	pick := -1
	for i, e := range entries {
		if e.fits(s.Difficulty) && !seen[render(e.Question, s)] {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i, e := range entries {
			if !seen[render(e.Question, s)] {
				pick = i
				break
			}
		}
	}
	if pick < 0 {
		// Bank exhausted for this type: repeat in order.
		pick = len(asked) % len(entries)
	}

	e := entries[pick]
	limit := e.TimeLimit
	if limit <= 0 {
		limit = 180
	}
	points := e.Points
	if points == nil {
		points = []string{}
	}
	return Generated{
		ID:                   NewID(),
		Type:                 typ,
		Question:             render(e.Question, s),
		Context:              render(e.Context, s),
		ExpectedAnswerPoints: points,
		Difficulty:           s.Difficulty,
		TimeLimit:            limit,
	}, nil
}

func render(text string, s *models.InterviewSession) string {
	company := "our company"
	if s.Company != nil && strings.TrimSpace(*s.Company) != "" {
		company = strings.TrimSpace(*s.Company)
	}
	role := s.JobRole
	if role == "" {
		role = "engineer"
	}
	return strings.NewReplacer("{role}", role, "{company}", company).Replace(text)
}
