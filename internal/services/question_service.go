package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/models"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"
)

type QuestionService interface {
	Create(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error)
	// CreateNext appends q after the session's latest question. It is a
	// CONFLICT while that question is unanswered.
	CreateNext(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error)
	Get(ctx context.Context, id string) (*models.InterviewQuestion, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error)
	Update(ctx context.Context, id string, patch models.QuestionPatch) (*models.InterviewQuestion, error)
}

type questionService struct {
	questions pgrepo.QuestionRepository
	cache     cache.Cache
}

func NewQuestionService(questions pgrepo.QuestionRepository, c cache.Cache) QuestionService {
	if c == nil {
		c = cache.Nop{}
	}
	return &questionService{questions: questions, cache: c}
}

func (s *questionService) Create(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	const op = "QuestionService.Create"

	if err := validateQuestion(op, q); err != nil {
		return nil, err
	}
	err := s.questions.Create(ctx, q)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to create question", err)
	}
	invalidateConversation(ctx, s.cache, q.SessionID)
	return q, nil
}

func (s *questionService) CreateNext(ctx context.Context, q *models.InterviewQuestion) (*models.InterviewQuestion, error) {
	const op = "QuestionService.CreateNext"

	if err := validateQuestion(op, q); err != nil {
		return nil, err
	}
	q.Order = 0
	err := s.questions.CreateNext(ctx, q)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
	case errors.Is(err, pgrepo.ErrQuestionPending):
		return nil, utils.E(utils.CodeConflict, op, "previous question is unanswered", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to create question", err)
	}
	invalidateConversation(ctx, s.cache, q.SessionID)
	return q, nil
}

func validateQuestion(op string, q *models.InterviewQuestion) error {
	if q == nil || q.SessionID == "" || strings.TrimSpace(q.Question) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "sessionId and question are required", nil)
	}
	switch q.Type {
	case models.QuestionTechnical, models.QuestionBehavioral, models.QuestionSituational:
	default:
		return utils.E(utils.CodeInvalidArgument, op, "invalid question type", nil)
	}
	if q.Order < 0 {
		return utils.E(utils.CodeInvalidArgument, op, "order must not be negative", nil)
	}
	if q.ExpectedAnswerPoints == nil {
		q.ExpectedAnswerPoints = []string{}
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (s *questionService) Get(ctx context.Context, id string) (*models.InterviewQuestion, error) {
	const op = "QuestionService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "questionId is required", nil)
	}
	out, err := s.questions.GetByID(ctx, id)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to get question", err)
	}
	return out, nil
}

func (s *questionService) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	const op = "QuestionService.ListBySession"

	rows, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list questions", err)
	}
	if rows == nil {
		rows = []models.InterviewQuestion{}
	}
	return rows, nil
}

func (s *questionService) Update(ctx context.Context, id string, patch models.QuestionPatch) (*models.InterviewQuestion, error) {
	const op = "QuestionService.Update"

	if patch.TimeLimit != nil && *patch.TimeLimit < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "timeLimit must not be negative", nil)
	}
	out, err := s.questions.Update(ctx, id, patch)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to update question", err)
	}
	invalidateConversation(ctx, s.cache, out.SessionID)
	return out, nil
}
