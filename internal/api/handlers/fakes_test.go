package handlers_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/applymint/applymint/internal/grading"
	"github.com/applymint/applymint/internal/models"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memSessions backs the real SessionService.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.InterviewSession
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
	if p.TotalQuestions != nil {
		s.TotalQuestions = *p.TotalQuestions
	}
	if p.CurrentQuestionIndex != nil {
		s.CurrentQuestionIndex = *p.CurrentQuestionIndex
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
	mu   sync.Mutex
	rows []models.InterviewQuestion
}

func (m *memQuestions) Create(_ context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Order = 1
	for _, r := range m.rows {
		if r.SessionID == q.SessionID {
			q.Order++
		}
	}
	m.rows = append(m.rows, *q)
	out := *q
	return &out, nil
}

func (m *memQuestions) CreateNext(_ context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Order = 1
	for _, r := range m.rows {
		if r.SessionID != q.SessionID {
			continue
		}
		if r.AnsweredAt == nil {
			return nil, utils.E(utils.CodeConflict, "memQuestions.CreateNext", "previous question is unanswered", pgrepo.ErrQuestionPending)
		}
		q.Order++
	}
	m.rows = append(m.rows, *q)
	out := *q
	return &out, nil
}

func (m *memQuestions) Get(_ context.Context, id string) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, utils.E(utils.CodeNotFound, "memQuestions.Get", "question not found", nil)
}

func (m *memQuestions) ListBySession(_ context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InterviewQuestion
	for _, r := range m.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memQuestions) Update(_ context.Context, id string, p models.QuestionPatch) (*models.InterviewQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if p.AnsweredAt != nil {
			m.rows[i].AnsweredAt = p.AnsweredAt
		}
		out := m.rows[i]
		return &out, nil
	}
	return nil, utils.E(utils.CodeNotFound, "memQuestions.Update", "question not found", nil)
}

type memResponses struct {
	mu        sync.Mutex
	questions *memQuestions
	rows      map[string]models.InterviewResponse
}

func (m *memResponses) Create(_ context.Context, _ string, r *models.InterviewResponse) (*models.InterviewResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[r.QuestionID]; dup {
		return nil, utils.E(utils.CodeConflict, "memResponses.Create", "question already answered", nil)
	}
	r.OverallScore = grading.Overall(r.CommunicationScore, r.TechnicalScore, r.CompletenessScore)
	m.rows[r.QuestionID] = *r
	return r, nil
}

func (m *memResponses) GetByQuestion(_ context.Context, questionID string) (*models.InterviewResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[questionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memResponses) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	qs, _ := m.questions.ListBySession(ctx, sessionID)
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
	mu   sync.Mutex
	rows []models.InterviewMessage
}

func (m *memMessages) Create(_ context.Context, msg *models.InterviewMessage) (*models.InterviewMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.MessageIndex = 0
	for _, r := range m.rows {
		if r.SessionID == msg.SessionID {
			msg.MessageIndex++
		}
	}
	m.rows = append(m.rows, *msg)
	return msg, nil
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
	return out, nil
}
