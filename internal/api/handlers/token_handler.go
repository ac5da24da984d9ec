package handlers

import (
	"errors"
	"io"

	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	tokens services.TokenService
}

func NewTokenHandler(tokens services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type TokenRequest struct {
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
}

// Issue serves POST /gemini-token.
func (h *TokenHandler) Issue(c *gin.Context) {
	const op = "TokenHandler.Issue"

	caller, found := requireCaller(c)
	if !found {
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	tok, err := h.tokens.Issue(c.Request.Context(), caller, req.SessionID, req.Model)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, tok)
}
