package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/grading"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/questions"
	pgrepo "github.com/applymint/applymint/internal/repositories/postgres"
	"github.com/applymint/applymint/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Session event types published to open stream channels.
const (
	EventFeedback         = "feedback"
	EventSessionCompleted = "session_completed"
	EventTranscription    = "transcription_completed"
)

type AnswerInput struct {
	QuestionID    string `json:"questionId"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Duration      int    `json:"duration"`
	AudioURL      string `json:"audioUrl"`
	Transcription string `json:"transcription"`
}

// InterviewService drives a session through its questions.
type InterviewService interface {
	// AskNextQuestion stores and returns the next question, the still
	// unanswered current one, or nil when nothing is left to ask.
	AskNextQuestion(ctx context.Context, sessionID string) (*models.InterviewQuestion, error)
	// SubmitAnswer grades an answer. It is persisted only when sessionID
	// names a session of the caller and QuestionID one of its questions.
	SubmitAnswer(ctx context.Context, caller models.Caller, sessionID string, in AnswerInput) (grading.Feedback, error)
	// EndSession summarizes the session and closes it when it exists.
	EndSession(ctx context.Context, caller models.Caller, sessionID string) (grading.Summary, error)
}

type interviewService struct {
	sessions  SessionService
	questions QuestionService
	responses ResponseService
	messages  MessageService

	generator questions.Generator
	grader    grading.Grader
	broker    events.Broker
	pub       events.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

type InterviewDeps struct {
	Sessions  SessionService
	Questions QuestionService
	Responses ResponseService
	Messages  MessageService
	Generator questions.Generator
	Grader    grading.Grader
	Broker    events.Broker
	Publisher events.Publisher
	Logger    *logrus.Logger
}

func NewInterviewService(d InterviewDeps) InterviewService {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Broker == nil {
		d.Broker = events.NewMemoryBroker()
	}
	return &interviewService{
		sessions:  d.Sessions,
		questions: d.Questions,
		responses: d.Responses,
		messages:  d.Messages,
		generator: d.Generator,
		grader:    d.Grader,
		broker:    d.Broker,
		pub:       d.Publisher,
		log:       d.Logger,
		now:       nowMillis,
	}
}

func (s *interviewService) AskNextQuestion(ctx context.Context, sessionID string) (*models.InterviewQuestion, error) {
	const op = "InterviewService.AskNextQuestion"

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if sess.Status.Terminal() {
		return nil, nil
	}

	asked, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if last := lastUnanswered(asked); last != nil {
		return last, nil
	}
	if len(asked) >= sess.TotalQuestions {
		return nil, nil
	}

	gen, err := s.generator.Next(ctx, sess, asked)
	if err != nil {
		return nil, utils.Upstream(op, "failed to generate question", 0, err)
	}

	now := s.now()
	if sess.Status == models.StatusPending {
		active := models.StatusActive
		if _, err := s.sessions.Update(ctx, sessionID, models.SessionPatch{Status: &active, StartedAt: &now}); err != nil {
			return nil, err
		}
	}

	q := &models.InterviewQuestion{
		ID:                   gen.ID,
		SessionID:            sessionID,
		Type:                 gen.Type,
		Question:             gen.Question,
		ExpectedAnswerPoints: gen.ExpectedAnswerPoints,
		Difficulty:           gen.Difficulty,
		TimeLimit:            gen.TimeLimit,
		AskedAt:              &now,
		CreatedAt:            now,
	}
	if gen.Context != "" {
		c := gen.Context
		q.Context = &c
	}
	created, err := s.questions.CreateNext(ctx, q)
	if errors.Is(err, pgrepo.ErrQuestionPending) {
		// Another channel asked first; offer its question.
		return s.pendingQuestion(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	q = created

	qid := q.ID
	if _, err := s.messages.Create(ctx, &models.InterviewMessage{
		SessionID:  sessionID,
		Type:       models.MessageAssistant,
		Content:    q.Question,
		QuestionID: &qid,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *interviewService) pendingQuestion(ctx context.Context, sessionID string) (*models.InterviewQuestion, error) {
	asked, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if last := lastUnanswered(asked); last != nil {
		return last, nil
	}
	return nil, utils.E(utils.CodeConflict, "InterviewService.AskNextQuestion", "question state changed, retry", nil)
}

func lastUnanswered(asked []models.InterviewQuestion) *models.InterviewQuestion {
	if n := len(asked); n > 0 && asked[n-1].AnsweredAt == nil {
		last := asked[n-1]
		return &last
	}
	return nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, caller models.Caller, sessionID string, in AnswerInput) (grading.Feedback, error) {
	const op = "InterviewService.SubmitAnswer"

	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		answer = strings.TrimSpace(in.Transcription)
	}
	if answer == "" {
		return grading.Feedback{}, utils.E(utils.CodeInvalidArgument, op, "answer is required", nil)
	}
	if in.Duration < 0 {
		return grading.Feedback{}, utils.E(utils.CodeInvalidArgument, op, "duration must not be negative", nil)
	}

	sess, err := s.ownedOrAbsent(ctx, op, caller, sessionID)
	if err != nil {
		return grading.Feedback{}, err
	}
	if sess != nil && sess.Status.Terminal() {
		return grading.Feedback{}, utils.E(utils.CodeConflict, op, "session is closed", nil)
	}

	gq := grading.Question{ID: in.QuestionID, Text: in.Question}
	var stored *models.InterviewQuestion
	if sess != nil && in.QuestionID != "" {
		q, err := s.questions.Get(ctx, in.QuestionID)
		if err != nil {
			return grading.Feedback{}, err
		}
		if q.SessionID != sess.ID {
			return grading.Feedback{}, utils.E(utils.CodeNotFound, op, "question not found", nil)
		}
		prev, err := s.responses.GetByQuestion(ctx, q.ID)
		if err != nil {
			return grading.Feedback{}, err
		}
		if prev != nil {
			return grading.Feedback{}, utils.E(utils.CodeConflict, op, "question already answered", nil)
		}
		stored = q
		gq = grading.Question{
			ID:                   q.ID,
			Type:                 q.Type,
			Text:                 q.Question,
			Difficulty:           q.Difficulty,
			ExpectedAnswerPoints: q.ExpectedAnswerPoints,
		}
	}

	fb, err := s.grader.Grade(ctx, gq, answer)
	if err != nil {
		return grading.Feedback{}, utils.Upstream(op, "failed to grade answer", 0, err)
	}
	if stored == nil {
		return fb, nil
	}

	if err := s.persistAnswer(ctx, sess, stored, in, answer, fb); err != nil {
		return grading.Feedback{}, err
	}
	return fb, nil
}

func (s *interviewService) persistAnswer(ctx context.Context, sess *models.InterviewSession, q *models.InterviewQuestion, in AnswerInput, answer string, fb grading.Feedback) error {
	now := s.now()
	resp := &models.InterviewResponse{
		QuestionID:         q.ID,
		Answer:             answer,
		AudioURL:           optional(in.AudioURL),
		Transcription:      optional(in.Transcription),
		Duration:           in.Duration,
		CommunicationScore: fb.CommunicationScore,
		TechnicalScore:     fb.TechnicalScore,
		CompletenessScore:  fb.CompletenessScore,
		Strengths:          fb.Strengths,
		Weaknesses:         fb.Weaknesses,
		Suggestions:        fb.Suggestions,
		ImprovedAnswer:     optional(fb.ImprovedAnswer),
		SubmittedAt:        now,
	}
	if _, err := s.responses.Create(ctx, sess.ID, resp); err != nil {
		return err
	}
	if _, err := s.questions.Update(ctx, q.ID, models.QuestionPatch{AnsweredAt: &now}); err != nil {
		return err
	}

	qid := q.ID
	if _, err := s.messages.Create(ctx, &models.InterviewMessage{
		SessionID:     sess.ID,
		Type:          models.MessageUser,
		Content:       answer,
		QuestionID:    &qid,
		AudioURL:      optional(in.AudioURL),
		Transcription: optional(in.Transcription),
		CreatedAt:     now,
	}); err != nil {
		return err
	}
	meta, _ := json.Marshal(fb)
	if _, err := s.messages.Create(ctx, &models.InterviewMessage{
		SessionID:  sess.ID,
		Type:       models.MessageAssistant,
		Content:    feedbackText(fb),
		QuestionID: &qid,
		Metadata:   datatypes.JSON(meta),
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	answered, err := s.responses.ListBySession(ctx, sess.ID)
	if err != nil {
		return err
	}
	idx := min(len(answered), sess.TotalQuestions)
	if _, err := s.sessions.Update(ctx, sess.ID, models.SessionPatch{CurrentQuestionIndex: &idx}); err != nil {
		return err
	}

	payload := map[string]any{"questionId": q.ID, "feedback": fb}
	if err := s.broker.Publish(ctx, sess.ID, EventFeedback, payload); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Warn("publish feedback event failed")
	}
	if err := s.pub.Publish(ctx, events.ResponseCreated, map[string]any{
		"sessionId":    sess.ID,
		"questionId":   q.ID,
		"responseId":   resp.ID,
		"overallScore": resp.OverallScore,
	}); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Warn("publish response.created failed")
	}
	return nil
}

func (s *interviewService) EndSession(ctx context.Context, caller models.Caller, sessionID string) (grading.Summary, error) {
	const op = "InterviewService.EndSession"

	sess, err := s.ownedOrAbsent(ctx, op, caller, sessionID)
	if err != nil {
		return grading.Summary{}, err
	}
	if sess == nil {
		return grading.Summarize(sessionID, nil, nil, s.now()), nil
	}

	qs, err := s.questions.ListBySession(ctx, sess.ID)
	if err != nil {
		return grading.Summary{}, err
	}
	rs, err := s.responses.ListBySession(ctx, sess.ID)
	if err != nil {
		return grading.Summary{}, err
	}
	summary := grading.Summarize(sess.ID, qs, rs, s.now())

	var next models.SessionStatus
	switch sess.Status {
	case models.StatusActive:
		next = models.StatusCompleted
	case models.StatusPending:
		next = models.StatusCancelled
	}
	if next != "" {
		if _, err := s.sessions.Update(ctx, sess.ID, models.SessionPatch{Status: &next}); err != nil {
			return grading.Summary{}, err
		}
	}

	if err := s.broker.Publish(ctx, sess.ID, EventSessionCompleted, map[string]any{"summary": summary}); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Warn("publish session_completed event failed")
	}
	if err := s.pub.Publish(ctx, events.SessionCompleted, map[string]any{
		"sessionId":    sess.ID,
		"userId":       sess.UserID,
		"status":       string(coalesceStatus(next, sess.Status)),
		"overallScore": summary.OverallScore,
		"answered":     summary.AnsweredQuestions,
	}); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Warn("publish session.completed failed")
	}
	return summary, nil
}

// ownedOrAbsent returns the session, nil when it does not exist, or
// FORBIDDEN when it belongs to someone else.
func (s *interviewService) ownedOrAbsent(ctx context.Context, op string, caller models.Caller, sessionID string) (*models.InterviewSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil && sess.UserID != caller.ID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	return sess, nil
}

func feedbackText(fb grading.Feedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score: %d/10 (communication %d, technical %d, completeness %d).",
		fb.OverallScore, fb.CommunicationScore, fb.TechnicalScore, fb.CompletenessScore)
	if len(fb.Strengths) > 0 {
		b.WriteString(" Strengths: " + strings.Join(fb.Strengths, "; ") + ".")
	}
	if len(fb.Suggestions) > 0 {
		b.WriteString(" Suggestions: " + strings.Join(fb.Suggestions, "; ") + ".")
	}
	return b.String()
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func coalesceStatus(a, b models.SessionStatus) models.SessionStatus {
	if a != "" {
		return a
	}
	return b
}
