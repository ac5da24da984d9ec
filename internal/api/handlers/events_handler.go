package handlers

import (
	"strconv"

	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	sessions services.SessionService
	events   services.EventLogService
}

func NewEventsHandler(sessions services.SessionService, events services.EventLogService) *EventsHandler {
	return &EventsHandler{sessions: sessions, events: events}
}

func (h *EventsHandler) limit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return services.DefaultEventLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > services.MaxEventLimit {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EventsHandler.limit", "limit must be between 1 and 500", err))
		return 0, false
	}
	return n, true
}

// List serves the owner's audit view of a session's stream events.
func (h *EventsHandler) List(c *gin.Context) {
	caller, found := requireCaller(c)
	if !found {
		return
	}
	limit, valid := h.limit(c)
	if !valid {
		return
	}
	sess, err := h.sessions.GetOwned(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.render(c, sess.ID, limit)
}

// AdminList skips the ownership check; the route requires the admin role.
func (h *EventsHandler) AdminList(c *gin.Context) {
	limit, valid := h.limit(c)
	if !valid {
		return
	}
	h.render(c, c.Param("id"), limit)
}

func (h *EventsHandler) render(c *gin.Context, sessionID string, limit int) {
	rows, err := h.events.List(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, rows)
}
