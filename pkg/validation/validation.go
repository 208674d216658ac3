// Package validation turns go-playground/validator failures into domain errors
// with one readable message per field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/todo/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}

var messages = map[string]string{
	"required": "the field '%s' is required",
	"email":    "the field '%s' must be a valid email address",
	"min":      "the field '%s' must be at least %s",
	"max":      "the field '%s' must be at most %s",
	"gte":      "the field '%s' must be greater than or equal to %s",
	"lte":      "the field '%s' must be less than or equal to %s",
	"oneof":    "the field '%s' must be one of [%s]",
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

// Struct validates s and returns a *domain.Error with code INVALID on failure.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.WrapError(domain.ErrCodeInvalid, "validation failed", err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		if _, seen := fields[e.Field()]; !seen {
			fields[e.Field()] = message(e)
		}
	}
	return domain.NewValidationError(fields)
}

// Var validates a single value against tag and reports failures under field.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.WrapError(domain.ErrCodeInvalid, "validation failed", err)
	}
	msg := strings.Replace(message(fieldErrs[0]), "''", "'"+field+"'", 1)
	return Fail(field, msg)
}

// Merge combines validation errors into one, keeping the first message per field.
// Non-validation errors are returned unchanged.
func Merge(errs ...error) error {
	fields := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var dErr *domain.Error
		if !errors.As(err, &dErr) || dErr.Code != domain.ErrCodeInvalid || dErr.Fields == nil {
			return err
		}
		for field, msg := range dErr.Fields {
			if _, ok := fields[field]; !ok {
				fields[field] = msg
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return domain.NewValidationError(fields)
}

// Fail builds a single-field validation error for checks that tags cannot express.
func Fail(field, msg string) error {
	return domain.NewValidationError(map[string]string{field: msg})
}
