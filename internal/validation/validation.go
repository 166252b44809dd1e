package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Normalizer is implemented by request types that trim / lowercase their input.
// Normalize runs before any constraint is checked.
type Normalizer interface {
	Normalize()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names ("createdAt"), not Go names ("CreatedAt")
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req, ok := sl.Current().Interface().(user.UpdateUserRequest)
		if ok && req.Changes().Empty() {
			sl.ReportError(nil, "", "", "atleastone", "")
		}
	}, user.UpdateUserRequest{})

	return v
}

// Check normalizes v (when it knows how) and validates it against its struct tags.
// It returns nil when v is valid.
func Check(v any) []FieldError {
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: message(fe.Tag(), fe.Param(), fe.Kind()),
		})
	}
	return out
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ParseUserID turns a path segment into a positive user id.
func ParseUserID(raw string) (int64, []FieldError) {
	if !digitsOnly.MatchString(raw) {
		return 0, []FieldError{{Field: "id", Message: "ID must be a valid number"}}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, []FieldError{{Field: "id", Message: "ID must be a valid number"}}
	}

	if id <= 0 {
		return 0, []FieldError{{Field: "id", Message: "ID must be a positive number"}}
	}

	return id, nil
}

func message(rule, param string, kind reflect.Kind) string {
	unit := ""
	if kind == reflect.String {
		unit = " characters"
	}

	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + unit
	case "max":
		return "must be at most " + param + unit
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "atleastone":
		return "At least one field must be provided for update"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
