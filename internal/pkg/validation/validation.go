// Package validation wraps go-playground/validator with field->message
// errors that map cleanly onto API validation responses.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type FieldError struct {
	Field   string
	Message string
}

type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e Errors) ToMap() map[string]string {
	result := make(map[string]string, len(e))
	for _, fe := range e {
		result[fe.Field] = fe.Message
	}
	return result
}

// Struct validates s against its `validate` tags and returns Errors, or nil
// when valid.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{{Field: "request", Message: err.Error()}}
	}

	var out Errors
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "latitude":
		return "must be a valid latitude between -90 and 90"
	case "longitude":
		return "must be a valid longitude between -180 and 180"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for '%s'", fe.Tag())
	}
}
