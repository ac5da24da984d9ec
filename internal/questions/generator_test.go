package questions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/applymint/applymint/internal/models"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

func session(types string) *models.InterviewSession {
	company := "Acme"
	s := &models.InterviewSession{
		ID:         "00000000-0000-0000-0000-000000000001",
		UserID:     "00000000-0000-0000-0000-0000000000aa",
		JobRole:    "Backend Engineer",
		Company:    &company,
		Difficulty: "mid",
	}
	if types != "" {
		s.QuestionTypes = datatypes.JSON(types)
	}
	return s
}

func TestTypeForRotates(t *testing.T) {
	s := session(`["behavioral","situational"]`)
	want := []string{"behavioral", "situational", "behavioral"}
	for i, w := range want {
		if got := TypeFor(s, i); got != w {
			t.Errorf("TypeFor(%d) = %q, want %q", i, got, w)
		}
	}

	if got := TypeFor(session(`["bogus"]`), 1); got != models.QuestionBehavioral {
		t.Errorf("unknown types should fall back to defaults, got %q", got)
	}
}

func TestBankGeneratorNext(t *testing.T) {
	g, err := NewBankGenerator(nil)
	if err != nil {
		t.Fatalf("NewBankGenerator: %v", err)
	}
	s := session("")

	var asked []models.InterviewQuestion
	seen := map[string]bool{}
	for i := 0; i < 6; i++ {
		q, err := g.Next(context.Background(), s, asked)
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if !strings.HasPrefix(q.ID, "q_") {
			t.Errorf("id %q lacks q_ prefix", q.ID)
		}
		if q.Type != TypeFor(s, i) {
			t.Errorf("type = %q, want %q", q.Type, TypeFor(s, i))
		}
		if strings.Contains(q.Question, "{role}") || strings.Contains(q.Question, "{company}") {
			t.Errorf("unrendered placeholder in %q", q.Question)
		}
		if seen[q.Question] {
			t.Errorf("question repeated: %q", q.Question)
		}
		seen[q.Question] = true
		asked = append(asked, models.InterviewQuestion{Question: q.Question, Type: q.Type})
	}
}

func TestBankGeneratorRejectsEmptyBank(t *testing.T) {
	if _, err := NewBankGenerator([]byte("technical: []\n")); err == nil {
		t.Fatal("expected error for empty bank")
	}
}

func TestBankGeneratorRepeatsWhenExhausted(t *testing.T) {
	g, err := NewBankGenerator([]byte("technical:\n  - question: only one\n"))
	if err != nil {
		t.Fatal(err)
	}
	s := session(`["technical"]`)
	asked := []models.InterviewQuestion{{Question: "only one"}}
	q, err := g.Next(context.Background(), s, asked)
	if err != nil || q.Question != "only one" || q.TimeLimit != 180 {
		t.Fatalf("got %+v, %v", q, err)
	}
}

type fakeLLM struct {
	out    string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(ctx context.Context, p string) (string, error) {
	return f.GenerateJSON(ctx, p)
}
func (f *fakeLLM) GenerateJSON(_ context.Context, p string) (string, error) {
	f.prompt = p
	return f.out, f.err
}
func (f *fakeLLM) Close() error { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0, 0}, nil }

type fakeIndex struct{ msgs []models.InterviewMessage }

func (f fakeIndex) SimilarUserAnswers(context.Context, string, pgvector.Vector, int) ([]models.InterviewMessage, error) {
	return f.msgs, nil
}

func TestLLMGenerator(t *testing.T) {
	bank, _ := NewBankGenerator(nil)
	llm := &fakeLLM{out: `{"question":"How do you shard a queue?","expectedAnswerPoints":["partitioning"],"timeLimit":120}`}
	g := &LLMGenerator{
		LLM:      llm,
		Fallback: bank,
		Embedder: fakeEmbedder{},
		Answers:  fakeIndex{msgs: []models.InterviewMessage{{Content: "I used Kafka partitions"}}},
	}

	q, err := g.Next(context.Background(), session(""), nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if q.Question != "How do you shard a queue?" || q.TimeLimit != 120 || q.Type != models.QuestionTechnical {
		t.Errorf("got %+v", q)
	}
	if !strings.Contains(llm.prompt, "Kafka partitions") || !strings.Contains(llm.prompt, "Acme") {
		t.Errorf("prompt missing context: %s", llm.prompt)
	}
}

func TestLLMGeneratorFallsBack(t *testing.T) {
	bank, _ := NewBankGenerator(nil)
	logger := logrus.New()
	logger.SetOutput(new(strings.Builder))

	g := &LLMGenerator{LLM: &fakeLLM{err: errors.New("quota")}, Fallback: bank, Logger: logger}
	q, err := g.Next(context.Background(), session(""), nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if q.Question == "" || !strings.HasPrefix(q.ID, "q_") {
		t.Errorf("fallback question = %+v", q)
	}

	g.Fallback = nil
	if _, err := g.Next(context.Background(), session(""), nil); err == nil {
		t.Error("expected error without fallback")
	}
}

func TestLLMGeneratorTrimsPastAnswersByRune(t *testing.T) {
	bank, _ := NewBankGenerator(nil)
	llm := &fakeLLM{out: `{"question":"Why?"}`}
	long := strings.Repeat("日本", 200) + "tail"
	g := &LLMGenerator{
		LLM:      llm,
		Fallback: bank,
		Embedder: fakeEmbedder{},
		Answers:  fakeIndex{msgs: []models.InterviewMessage{{Content: long}}},
	}

	if _, err := g.Next(context.Background(), session(""), nil); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !utf8.ValidString(llm.prompt) {
		t.Fatal("prompt is not valid UTF-8")
	}
	want := "- " + strings.Repeat("日本", 150) + "\n"
	if !strings.Contains(llm.prompt, want) {
		t.Errorf("prompt does not carry the first 300 runes of the answer: %s", llm.prompt)
	}
	if strings.Contains(llm.prompt, "tail") {
		t.Error("answer was not truncated")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abc", 3, "abc"},
		{"abcdef", 2, "ab"},
		{"héllo", 2, "hé"},
		{"日本語", 1, "日"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
