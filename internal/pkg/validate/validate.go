package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Validator wraps go-playground/validator and reports fields by their json name.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return Required(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct returns nil or an error listing every failed field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, describe(fe))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "gte":
		return fe.Field() + " must be >= " + fe.Param()
	case "max":
		return fe.Field() + " is too long"
	case "url", "http_url":
		return fe.Field() + " must be a valid url"
	case "gtefield":
		return fe.Field() + " must not be lower than " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
