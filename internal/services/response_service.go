package services

import (
	"context"
	"errors"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/grading"
	"github.com/applymint/applymint/internal/models"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"

	"github.com/google/uuid"
)

type ResponseService interface {
	// Create stores the single response of a question. The overall score is
	// recomputed from the three sub-scores.
	Create(ctx context.Context, sessionID string, r *models.InterviewResponse) (*models.InterviewResponse, error)
	// GetByQuestion returns nil, nil when the question has no response.
	GetByQuestion(ctx context.Context, questionID string) (*models.InterviewResponse, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error)
}

type responseService struct {
	responses pgrepo.ResponseRepository
	cache     cache.Cache
}

func NewResponseService(responses pgrepo.ResponseRepository, c cache.Cache) ResponseService {
	if c == nil {
		c = cache.Nop{}
	}
	return &responseService{responses: responses, cache: c}
}

func (s *responseService) Create(ctx context.Context, sessionID string, r *models.InterviewResponse) (*models.InterviewResponse, error) {
	const op = "ResponseService.Create"

	if r == nil || r.QuestionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "questionId is required", nil)
	}
	for _, v := range []int{r.CommunicationScore, r.TechnicalScore, r.CompletenessScore} {
		if v < 0 || v > 10 {
			return nil, utils.E(utils.CodeInvalidArgument, op, "scores must be within [0, 10]", nil)
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	r.OverallScore = grading.Overall(r.CommunicationScore, r.TechnicalScore, r.CompletenessScore)

	err := s.responses.Create(ctx, r)
	switch {
	case errors.Is(err, pgrepo.ErrDuplicate):
		return nil, utils.E(utils.CodeConflict, op, "question already answered", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to create response", err)
	}
	invalidateConversation(ctx, s.cache, sessionID)
	return r, nil
}

func (s *responseService) GetByQuestion(ctx context.Context, questionID string) (*models.InterviewResponse, error) {
	const op = "ResponseService.GetByQuestion"

	out, err := s.responses.GetByQuestion(ctx, questionID)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to get response", err)
	}
	return out, nil
}

func (s *responseService) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	const op = "ResponseService.ListBySession"

	rows, err := s.responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list responses", err)
	}
	if rows == nil {
		rows = []models.InterviewResponse{}
	}
	return rows, nil
}
