package handlers

import (
	"time"

	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type SessionHandler struct {
	sessions      services.SessionService
	conversations services.ConversationService
}

func NewSessionHandler(sessions services.SessionService, conversations services.ConversationService) *SessionHandler {
	return &SessionHandler{sessions: sessions, conversations: conversations}
}

// SessionDTO is the wire form of a session. Dates are ISO-8601 strings.
type SessionDTO struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"userId"`
	Title                string   `json:"title"`
	Mode                 string   `json:"mode"`
	Status               string   `json:"status"`
	JobRole              string   `json:"jobRole"`
	Company              *string  `json:"company"`
	Difficulty           string   `json:"difficulty"`
	Duration             int      `json:"duration"`
	TotalQuestions       int      `json:"totalQuestions"`
	CurrentQuestionIndex int      `json:"currentQuestionIndex"`
	CustomInstructions   *string  `json:"customInstructions"`
	QuestionTypes        []string `json:"questionTypes"`
	StartedAt            *string  `json:"startedAt"`
	CompletedAt          *string  `json:"completedAt"`
	CreatedAt            string   `json:"createdAt"`
	UpdatedAt            string   `json:"updatedAt"`
}

func iso(t time.Time) string { return t.UTC().Format(isoMillis) }

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := iso(*t)
	return &s
}

func toSessionDTO(s *models.InterviewSession) SessionDTO {
	types := s.RequestedQuestionTypes()
	if types == nil {
		types = []string{}
	}
	return SessionDTO{
		ID:                   s.ID,
		UserID:               s.UserID,
		Title:                s.Title,
		Mode:                 s.Mode,
		Status:               string(s.Status),
		JobRole:              s.JobRole,
		Company:              s.Company,
		Difficulty:           s.Difficulty,
		Duration:             s.Duration,
		TotalQuestions:       s.TotalQuestions,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		CustomInstructions:   s.CustomInstructions,
		QuestionTypes:        types,
		StartedAt:            isoPtr(s.StartedAt),
		CompletedAt:          isoPtr(s.CompletedAt),
		CreatedAt:            iso(s.CreatedAt),
		UpdatedAt:            iso(s.UpdatedAt),
	}
}

type ConversationDTO struct {
	Session   SessionDTO                 `json:"session"`
	Messages  []models.InterviewMessage  `json:"messages"`
	Questions []models.InterviewQuestion `json:"questions"`
	Responses []models.InterviewResponse `json:"responses"`
}

type CreateSessionRequest struct {
	Title              string   `json:"title"`
	JobRole            string   `json:"jobRole"`
	Mode               string   `json:"mode"`
	Company            *string  `json:"company"`
	Difficulty         string   `json:"difficulty"`
	Duration           *int     `json:"duration"`
	QuestionTypes      []string `json:"questionTypes"`
	CustomInstructions *string  `json:"customInstructions"`
}

// PatchSessionRequest lists the patchable fields; anything else in the body
// (userId, timestamps) is ignored.
type PatchSessionRequest struct {
	Title                *string `json:"title"`
	Status               *string `json:"status"`
	Company              *string `json:"company"`
	Difficulty           *string `json:"difficulty"`
	Duration             *int    `json:"duration"`
	TotalQuestions       *int    `json:"totalQuestions"`
	CurrentQuestionIndex *int    `json:"currentQuestionIndex"`
	CustomInstructions   *string `json:"customInstructions"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	const op = "SessionHandler.Create"

	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	in := services.CreateSessionInput{
		Title:              req.Title,
		JobRole:            req.JobRole,
		Mode:               req.Mode,
		Company:            req.Company,
		Difficulty:         req.Difficulty,
		Duration:           req.Duration,
		QuestionTypes:      req.QuestionTypes,
		CustomInstructions: req.CustomInstructions,
	}
	sess, err := h.sessions.CreateIdempotent(c.Request.Context(), caller.ID, c.GetHeader("Idempotency-Key"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, toSessionDTO(sess))
}

func (h *SessionHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	rows, err := h.sessions.ListByUser(c.Request.Context(), caller.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]SessionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toSessionDTO(&rows[i]))
	}
	success(c, out)
}

func (h *SessionHandler) Get(c *gin.Context) {
	const op = "SessionHandler.Get"

	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	conv, err := h.conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv == nil {
		writeError(c, utils.E(utils.CodeNotFound, op, "session not found", nil))
		return
	}
	if conv.Session.UserID != caller.ID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	success(c, ConversationDTO{
		Session:   toSessionDTO(conv.Session),
		Messages:  conv.Messages,
		Questions: conv.Questions,
		Responses: conv.Responses,
	})
}

func (h *SessionHandler) Patch(c *gin.Context) {
	const op = "SessionHandler.Patch"

	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req PatchSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	cur, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if cur == nil || cur.UserID != caller.ID {
		writeError(c, utils.E(utils.CodeNotFound, op, "session not found", nil))
		return
	}

	patch := models.SessionPatch{
		Title:                req.Title,
		Company:              req.Company,
		Difficulty:           req.Difficulty,
		Duration:             req.Duration,
		TotalQuestions:       req.TotalQuestions,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		CustomInstructions:   req.CustomInstructions,
	}
	if req.Status != nil {
		st := models.SessionStatus(*req.Status)
		patch.Status = &st
	}
	if v := c.GetHeader("If-Unmodified-Since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "If-Unmodified-Since must be an ISO-8601 timestamp", err))
			return
		}
		patch.IfUpdatedAt = &t
	}

	out, err := h.sessions.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to update session", nil))
		return
	}
	success(c, toSessionDTO(out))
}
