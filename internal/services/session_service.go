package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/applymint/applymint/internal/cache"
	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/models"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const idempotencyTTL = 24 * time.Hour

type CreateSessionInput struct {
	Title              string
	JobRole            string
	Mode               string
	Company            *string
	Difficulty         string
	Duration           *int
	QuestionTypes      []string
	CustomInstructions *string
}

type SessionService interface {
	Create(ctx context.Context, userID string, in CreateSessionInput) (*models.InterviewSession, error)
	// CreateIdempotent replays the session created earlier with the same key.
	CreateIdempotent(ctx context.Context, userID, key string, in CreateSessionInput) (*models.InterviewSession, error)
	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, id string) (*models.InterviewSession, error)
	// GetOwned fails with NOT_FOUND before FORBIDDEN.
	GetOwned(ctx context.Context, caller models.Caller, id string) (*models.InterviewSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.InterviewSession, error)
	// Update returns nil, nil when the session does not exist.
	Update(ctx context.Context, id string, patch models.SessionPatch) (*models.InterviewSession, error)
}

type sessionService struct {
	sessions pgrepo.SessionRepository
	cache    cache.Cache
	pub      events.Publisher
	log      *logrus.Logger
	now      func() time.Time
}

func NewSessionService(sessions pgrepo.SessionRepository, c cache.Cache, pub events.Publisher, log *logrus.Logger) SessionService {
	if c == nil {
		c = cache.Nop{}
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &sessionService{
		sessions: sessions,
		cache:    c,
		pub:      pub,
		log:      log,
		now:      nowMillis,
	}
}

func (s *sessionService) Create(ctx context.Context, userID string, in CreateSessionInput) (*models.InterviewSession, error) {
	return s.create(ctx, uuid.NewString(), userID, in)
}

func (s *sessionService) create(ctx context.Context, id, userID string, in CreateSessionInput) (*models.InterviewSession, error) {
	const op = "SessionService.Create"

	row, err := newSession(id, userID, in, s.now())
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	if err := s.pub.Publish(ctx, events.SessionCreated, map[string]any{
		"sessionId": row.ID,
		"userId":    row.UserID,
		"jobRole":   row.JobRole,
		"mode":      row.Mode,
	}); err != nil {
		s.log.WithError(err).WithField("session_id", row.ID).Warn("publish session.created failed")
	}
	return row, nil
}

func newSession(id, userID string, in CreateSessionInput, now time.Time) (*models.InterviewSession, error) {
	title := strings.TrimSpace(in.Title)
	jobRole := strings.TrimSpace(in.JobRole)
	mode := strings.TrimSpace(in.Mode)
	if userID == "" {
		return nil, errors.New("userId is required")
	}
	if title == "" || jobRole == "" || mode == "" {
		return nil, errors.New("title, jobRole, and mode are required")
	}
	if mode != models.ModeText && mode != models.ModeVoice {
		return nil, errors.New("mode must be text or voice")
	}

	difficulty := strings.TrimSpace(in.Difficulty)
	if difficulty == "" {
		difficulty = models.DefaultDifficulty
	}
	duration := models.DefaultDuration
	if in.Duration != nil {
		if *in.Duration <= 0 {
			return nil, errors.New("duration must be positive")
		}
		duration = *in.Duration
	}
	total := models.DefaultTotalQuestions
	if len(in.QuestionTypes) > 0 {
		total = len(in.QuestionTypes)
	}

	row := &models.InterviewSession{
		ID:                   id,
		UserID:               userID,
		Title:                title,
		Mode:                 mode,
		Status:               models.StatusPending,
		JobRole:              jobRole,
		Company:              trimmedOrNil(in.Company),
		Difficulty:           difficulty,
		Duration:             duration,
		TotalQuestions:       total,
		CurrentQuestionIndex: 0,
		CustomInstructions:   trimmedOrNil(in.CustomInstructions),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if len(in.QuestionTypes) > 0 {
		raw, err := json.Marshal(in.QuestionTypes)
		if err != nil {
			return nil, err
		}
		row.QuestionTypes = datatypes.JSON(raw)
	}
	return row, nil
}

func (s *sessionService) CreateIdempotent(ctx context.Context, userID, key string, in CreateSessionInput) (*models.InterviewSession, error) {
	const op = "SessionService.CreateIdempotent"

	key = strings.TrimSpace(key)
	if key == "" {
		return s.Create(ctx, userID, in)
	}
	cacheKey := "idem:session:" + userID + ":" + key
	id := uuid.NewString()

	won, err := s.cache.SetIfAbsent(ctx, cacheKey, id, idempotencyTTL)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to reserve idempotency key", err)
	}
	if won {
		out, err := s.create(ctx, id, userID, in)
		if err != nil {
			_ = s.cache.Del(ctx, cacheKey)
			return nil, err
		}
		return out, nil
	}

	prev, hit, err := s.cache.GetString(ctx, cacheKey)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read idempotency key", err)
	}
	if !hit {
		return nil, utils.E(utils.CodeConflict, op, "request with this idempotency key is in progress", nil)
	}
	out, err := s.Get(ctx, prev)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, utils.E(utils.CodeConflict, op, "request with this idempotency key is in progress", nil)
	}
	return out, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*models.InterviewSession, error) {
	const op = "SessionService.Get"

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	out, err := s.sessions.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) GetOwned(ctx context.Context, caller models.Caller, id string) (*models.InterviewSession, error) {
	const op = "SessionService.GetOwned"

	out, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if out.UserID != caller.ID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	return out, nil
}

func (s *sessionService) ListByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	const op = "SessionService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "userId is required", nil)
	}
	rows, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	if rows == nil {
		rows = []models.InterviewSession{}
	}
	return rows, nil
}

func (s *sessionService) Update(ctx context.Context, id string, patch models.SessionPatch) (*models.InterviewSession, error) {
	const op = "SessionService.Update"

	cur, err := s.Get(ctx, id)
	if err != nil || cur == nil {
		return nil, err
	}

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown status "+string(*patch.Status), nil)
	}
	now := s.now()
	if err := applyLifecycle(cur, &patch, now); err != nil {
		return nil, utils.E(utils.CodeConflict, op, err.Error(), nil)
	}
	if err := validatePatch(cur, patch); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}

	out, err := s.sessions.Update(ctx, id, patch, now)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, nil
	case errors.Is(err, utils.ErrStale):
		return nil, utils.E(utils.CodeConflict, op, "session was modified by another request", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to update session", err)
	}

	invalidateConversation(ctx, s.cache, id)
	return out, nil
}

// applyLifecycle checks a status change and fills the timestamps it implies.
func applyLifecycle(cur *models.InterviewSession, p *models.SessionPatch, now time.Time) error {
	if p.Status == nil {
		return nil
	}
	next := *p.Status
	if next == cur.Status {
		p.Status = nil
		return nil
	}
	if !cur.Status.CanTransition(next) {
		return errors.New("cannot move session from " + string(cur.Status) + " to " + string(next))
	}
	if next == models.StatusActive && cur.StartedAt == nil && p.StartedAt == nil {
		p.StartedAt = &now
	}
	if next == models.StatusCompleted {
		p.CompletedAt = &now
	}
	return nil
}

func validatePatch(cur *models.InterviewSession, p models.SessionPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if p.Difficulty != nil && strings.TrimSpace(*p.Difficulty) == "" {
		return errors.New("difficulty cannot be empty")
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	total := cur.TotalQuestions
	if p.TotalQuestions != nil {
		if *p.TotalQuestions <= 0 {
			return errors.New("totalQuestions must be positive")
		}
		total = *p.TotalQuestions
	}
	idx := cur.CurrentQuestionIndex
	if p.CurrentQuestionIndex != nil {
		idx = *p.CurrentQuestionIndex
	}
	if idx < 0 || idx > total {
		return errors.New("currentQuestionIndex must be within [0, totalQuestions]")
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// nowMillis matches the precision of the ISO timestamps clients echo back
// in If-Unmodified-Since.
func nowMillis() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
