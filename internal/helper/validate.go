package helper

import (
	"errors"
	"reflect"
	"strings"

	"backend-pameran/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct tag validation and reports the first failure as a
// VALIDATION_ERROR naming the JSON field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return apperror.Validation("invalid request")
	}

	fe := vErrs[0]
	return apperror.Validation(fieldMessage(fe)).WithDetail("field", fe.Field())
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required for " + strings.ToLower(strings.Fields(fe.Param())[1]) + " registration"
	case "gt":
		return field + " must be a positive integer"
	case "gte":
		return field + " must not be negative"
	case "max":
		return field + " exceeds maximum length"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "datetime":
		return field + " must use format YYYY-MM-DD"
	default:
		return field + " is invalid"
	}
}
