package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "blog-cms/internal/shared/errors"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

const notBlankTag = "notblank"

func init() {
	validate = validator.New()

	// report JSON field names instead of Go struct names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	})
}

var messages = map[string]string{
	"required": "the field '%s' is required",
	"notblank": "the field '%s' cannot be blank",
	"email":    "the field '%s' must be a valid email address",
	"min":      "the field '%s' must be at least %s",
	"max":      "the field '%s' must be at most %s",
	"oneof":    "the field '%s' must be one of [%s]",
	"gte":      "the field '%s' must be greater than or equal to %s",
	"lte":      "the field '%s' must be less than or equal to %s",
	"url":      "the field '%s' must be a valid URL",
}

func message(e validator.FieldError) string {
	msg, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("the field '%s' is invalid: %s", e.Field(), e.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, e.Field(), e.Param())
	}
	return fmt.Sprintf(msg, e.Field())
}

// Struct validates s and returns an INVALID_ARGUMENT AppError listing every failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}
	ve := apperrors.NewValidationErrors()
	for _, fe := range fieldErrs {
		ve.Add(fe.Field(), message(fe), fe.Value())
	}
	return ve.ToAppError()
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return validate.Var(s, "required,email") == nil
}
