package handlers

import (
	"errors"
	"net/http"

	"github.com/applymint/applymint/internal/api/middleware"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Error string     `json:"error"`
	Code  utils.Code `json:"code"`
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func errorBody(err error) APIError {
	code := utils.CodeInternal
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	return APIError{Error: utils.SafeMessage(err), Code: code}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(utils.HTTPStatus(err), errorBody(err))
}

func requireCaller(c *gin.Context) (models.Caller, bool) {
	id := c.GetString(middleware.CtxUserID)
	if id == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
		return models.Caller{}, false
	}
	role := models.UserRole(c.GetString(middleware.CtxRole))
	if role == "" {
		role = models.RoleUser
	}
	return models.Caller{ID: id, Role: role}, true
}
