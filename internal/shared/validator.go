package shared

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps [validator.Validate] and reports failures as [ErrInvalidPayload].
//
// Safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator that names fields by their json tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s.
func (v *Validator) Struct(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag such as "required,min=1".
func (v *Validator) Var(field any, tag string) error {
	if err := v.v.Var(field, tag); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s %s", e.Namespace(), friendlyMessage(e)))
	}
	sort.Strings(fields)

	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(fields, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
