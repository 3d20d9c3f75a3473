// Package handler provides the HTTP handlers for the riff API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"riffd/internal/service"
)

// Gin context keys set by the auth middleware.
const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message})
}

// Fail maps a business error onto the HTTP status for its kind. Callers
// retry with the same request; nothing here is fatal.
func Fail(ctx *gin.Context, err error) {
	switch service.Classify(err) {
	case service.KindValidation:
		Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case service.KindNotFound:
		Error(ctx, http.StatusNotFound, 40401, err.Error())
	case service.KindConflict:
		Error(ctx, http.StatusConflict, 40901, err.Error())
	case service.KindAuthorization:
		if err == service.ErrInvalidCredentials {
			Error(ctx, http.StatusUnauthorized, 40101, err.Error())
			return
		}
		Error(ctx, http.StatusForbidden, 40301, err.Error())
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("request failed")
		Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}

// currentUser returns the authenticated identity from the gin context.
func currentUser(ctx *gin.Context) (id, username string) {
	return ctx.GetString(ContextUserIDKey), ctx.GetString(ContextUsernameKey)
}
