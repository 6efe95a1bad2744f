// Package validation wraps go-playground/validator and turns its failures
// into domain validation errors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator. Field names in messages come from
// the mapstructure tag so they match the configuration keys.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			}
			return name
		})
	})
	return instance
}

// Struct validates s and reports the first failures as a shared validation error
func Struct(s any) error {
	return Translate(Validator().Struct(s))
}

// Var validates a single value against tag, naming it field in the message
func Var(field string, value any, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return shared.NewValidationError(field + ": " + Message(fieldErrs[0]))
	}
	return shared.NewValidationError(field + ": " + err.Error())
}

// Translate converts validator failures into a single *shared.DomainError
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewValidationError(err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fieldPath(fe)+": "+Message(fe))
	}
	return shared.NewValidationError(strings.Join(parts, "; "))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Message returns a human-readable message for a failed tag
func Message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "must contain at least " + e.Param() + " entries"
		}
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "len":
		return "must be exactly " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "numeric":
		return "must be numeric"
	case "alphanum":
		return "must be alphanumeric"
	default:
		return "is invalid"
	}
}
