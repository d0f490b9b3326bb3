package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// writeError renders err as APIError and keeps it on the context so the
// request logger sees the cause.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	body := APIError{Code: utils.CodeOf(err)}
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		body.Message = ae.Message
	} else {
		body.Message = http.StatusText(utils.HTTPStatus(err))
	}
	c.AbortWithStatusJSON(utils.HTTPStatus(err), body)
}

// bindJSON decodes the body into dst or answers 400.
func bindJSON(c *gin.Context, op, msg string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, msg, err))
		return false
	}
	return true
}

func requireUserID(c *gin.Context) (string, bool) {
	if id := c.GetString("user_id"); id != "" {
		return id, true
	}
	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}
