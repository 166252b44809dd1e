package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/geocoder89/usershub/internal/validation"
	"github.com/gin-gonic/gin"
)

// BindJSON decodes the body into out, normalizes and validates it. On failure it writes the
// 400 response and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondValidation(ctx, parseBindError(err))
		return false
	}

	if errs := validation.Check(out); errs != nil {
		RespondValidation(ctx, errs)
		return false
	}

	return true
}

// BindUserID validates the :id path parameter.
func BindUserID(ctx *gin.Context) (int64, bool) {
	id, errs := validation.ParseUserID(ctx.Param("id"))
	if errs != nil {
		RespondValidation(ctx, errs)
		return 0, false
	}
	return id, true
}

func parseBindError(err error) []validation.FieldError {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return []validation.FieldError{{Field: "", Message: "Request body is required"}}

	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		return []validation.FieldError{{Field: "", Message: "Request body must be valid JSON"}}

	case errors.As(err, &typeError):
		// Field is already the json path, e.g. "name"
		return []validation.FieldError{{
			Field:   typeError.Field,
			Message: fmt.Sprintf("must be of type %s", typeError.Type.String()),
		}}

	case errors.As(err, &tooLarge):
		return []validation.FieldError{{Field: "", Message: "Request body is too large"}}

	default:
		return []validation.FieldError{{Field: "", Message: "Invalid request body"}}
	}
}
