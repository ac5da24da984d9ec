package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/stt"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"

	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.InterviewSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]models.InterviewSession{}}
}

func (m *memSessions) Create(_ context.Context, s *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID string) ([]models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InterviewSession
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSessions) Update(_ context.Context, id string, p models.SessionPatch, now time.Time) (*models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if p.IfUpdatedAt != nil && !s.UpdatedAt.Equal(*p.IfUpdatedAt) {
		return nil, utils.ErrStale
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Company != nil {
		s.Company = p.Company
	}
	if p.Difficulty != nil {
		s.Difficulty = *p.Difficulty
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.TotalQuestions != nil {
		s.TotalQuestions = *p.TotalQuestions
	}
	if p.CurrentQuestionIndex != nil {
		s.CurrentQuestionIndex = *p.CurrentQuestionIndex
	}
	if p.CustomInstructions != nil {
		s.CustomInstructions = p.CustomInstructions
	}
	if p.StartedAt != nil {
		s.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		s.CompletedAt = p.CompletedAt
	}
	s.UpdatedAt = now
	m.rows[id] = s
	return &s, nil
}

type memQuestions struct {
	mu       sync.Mutex
	sessions *memSessions
	rows     map[string]models.InterviewQuestion
	listErr  error
	// afterList runs once a listing is read, outside the lock.
	afterList func()
}

func newMemQuestions(sessions *memSessions) *memQuestions {
	return &memQuestions{sessions: sessions, rows: map[string]models.InterviewQuestion{}}
}

func (m *memQuestions) Create(ctx context.Context, q *models.InterviewQuestion) error {
	if _, err := m.sessions.GetByID(ctx, q.SessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.Order == 0 {
		for _, r := range m.rows {
			if r.SessionID == q.SessionID && r.Order > q.Order {
				q.Order = r.Order
			}
		}
		q.Order++
	}
	m.rows[q.ID] = *q
	return nil
}

func (m *memQuestions) CreateNext(ctx context.Context, q *models.InterviewQuestion) error {
	if _, err := m.sessions.GetByID(ctx, q.SessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *models.InterviewQuestion
	for _, r := range m.rows {
		if r.SessionID == q.SessionID && (last == nil || r.Order > last.Order) {
			last = &r
		}
	}
	q.Order = 1
	if last != nil {
		if last.AnsweredAt == nil {
			return pgrepo.ErrQuestionPending
		}
		q.Order = last.Order + 1
	}
	m.rows[q.ID] = *q
	return nil
}

func (m *memQuestions) GetByID(_ context.Context, id string) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &q, nil
}

func (m *memQuestions) ListBySession(_ context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	var out []models.InterviewQuestion
	for _, q := range m.rows {
		if q.SessionID == sessionID {
			out = append(out, q)
		}
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memQuestions) Update(_ context.Context, id string, p models.QuestionPatch) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if p.Context != nil {
		q.Context = p.Context
	}
	if p.AskedAt != nil {
		q.AskedAt = p.AskedAt
	}
	if p.AnsweredAt != nil {
		q.AnsweredAt = p.AnsweredAt
	}
	if p.TimeLimit != nil {
		q.TimeLimit = *p.TimeLimit
	}
	m.rows[id] = q
	return &q, nil
}

type memResponses struct {
	mu        sync.Mutex
	questions *memQuestions
	rows      map[string]models.InterviewResponse // by question id
}

func newMemResponses(questions *memQuestions) *memResponses {
	return &memResponses{questions: questions, rows: map[string]models.InterviewResponse{}}
}

func (m *memResponses) Create(_ context.Context, r *models.InterviewResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.QuestionID]; ok {
		return pgrepo.ErrDuplicate
	}
	m.rows[r.QuestionID] = *r
	return nil
}

func (m *memResponses) GetByQuestion(_ context.Context, questionID string) (*models.InterviewResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[questionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &r, nil
}

func (m *memResponses) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	qs, err := m.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InterviewResponse
	for _, q := range qs {
		if r, ok := m.rows[q.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type memMessages struct {
	mu       sync.Mutex
	sessions *memSessions
	rows     []models.InterviewMessage
}

func (m *memMessages) Append(ctx context.Context, msg *models.InterviewMessage) error {
	if _, err := m.sessions.GetByID(ctx, msg.SessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, r := range m.rows {
		if r.SessionID == msg.SessionID && r.MessageIndex >= next {
			next = r.MessageIndex + 1
		}
	}
	msg.MessageIndex = next
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListBySession(_ context.Context, sessionID string) ([]models.InterviewMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InterviewMessage
	for _, r := range m.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageIndex < out[j].MessageIndex })
	return out, nil
}

func (m *memMessages) SimilarUserAnswers(context.Context, string, pgvector.Vector, int) ([]models.InterviewMessage, error) {
	return nil, nil
}

type memCache struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemCache() *memCache { return &memCache{vals: map[string]string{}} }

func (c *memCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (c *memCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (c *memCache) SetIfAbsent(_ context.Context, key, val string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vals[key]; ok {
		return false, nil
	}
	c.vals[key] = val
	return true, nil
}
func (c *memCache) GetString(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[key]
	return v, ok, nil
}
func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.vals, k)
	}
	return nil
}

// jsonCache is a memCache that also keeps JSON values.
type jsonCache struct{ *memCache }

func newJSONCache() jsonCache { return jsonCache{newMemCache()} }

func (c jsonCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	v, ok := c.vals[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(v), dst)
}

func (c jsonCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.vals[key] = string(b)
	c.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	p.keys = append(p.keys, key)
	p.mu.Unlock()
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

type fakeSTT struct {
	text string
	err  error
}

func (f fakeSTT) Transcribe(context.Context, []byte, string) (stt.Transcript, error) {
	return stt.Transcript{Text: f.text, Confidence: 0.9, Language: "en-US"}, f.err
}
func (fakeSTT) Close() error { return nil }

type memQueue struct {
	jobs []TranscriptionJob
}

func (q *memQueue) Enqueue(_ context.Context, job TranscriptionJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

var errBoom = errors.New("boom")

// harness wires every service over in-memory repositories.
type harness struct {
	sessionRepo  *memSessions
	questionRepo *memQuestions
	responseRepo *memResponses
	messageRepo  *memMessages
	pub          *recordingPublisher

	sessions      SessionService
	questions     QuestionService
	responses     ResponseService
	messages      MessageService
	conversations ConversationService
}

func newHarness() *harness { return newHarnessWith(newMemCache()) }

func newHarnessWith(c cache.Cache) *harness {
	h := &harness{sessionRepo: newMemSessions(), pub: &recordingPublisher{}}
	h.questionRepo = newMemQuestions(h.sessionRepo)
	h.responseRepo = newMemResponses(h.questionRepo)
	h.messageRepo = &memMessages{sessions: h.sessionRepo}

	log := quietLogger()
	h.sessions = NewSessionService(h.sessionRepo, c, h.pub, log)
	h.questions = NewQuestionService(h.questionRepo, c)
	h.responses = NewResponseService(h.responseRepo, c)
	h.messages = NewMessageService(h.messageRepo, c, nil, log)
	h.conversations = NewConversationService(h.sessions, h.questions, h.responses, h.messages, c, log)
	return h
}

func (h *harness) mustCreate(userID string) *models.InterviewSession {
	s, err := h.sessions.Create(context.Background(), userID, CreateSessionInput{
		Title:   "Mock",
		JobRole: "Backend Engineer",
		Mode:    models.ModeText,
	})
	if err != nil {
		panic(err)
	}
	return s
}
