package handlers

import (
	"net/http"

	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/geocoder89/usershub/internal/validation"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Error     string      `json:"error"`
	Message   string      `json:"message,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, errText, message string, details interface{}) {
	ctx.JSON(status, APIError{
		Error:     errText,
		Message:   message,
		Details:   details,
		RequestID: requestIDFrom(ctx),
	})
}

func RespondValidation(ctx *gin.Context, details []validation.FieldError) {
	RespondError(ctx, http.StatusBadRequest, "Validation failed", "", details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "Authentication required", message, nil)
}

func RespondForbidden(ctx *gin.Context, errText, message string) {
	RespondError(ctx, http.StatusForbidden, errText, message, nil)
}

func RespondNotFound(ctx *gin.Context, errText string) {
	RespondError(ctx, http.StatusNotFound, errText, "", nil)
}

func RespondConflict(ctx *gin.Context, errText string) {
	RespondError(ctx, http.StatusConflict, errText, "", nil)
}

// RespondInternal never echoes the underlying error; callers log it.
func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "Internal server error", "", nil)
}
