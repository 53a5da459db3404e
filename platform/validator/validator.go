// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator so it can be injected.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the shared custom rules registered.
func New() *Validator {
	v := validator.New()
	// notblank rejects whitespace-only strings, which "required" lets through.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// FieldErrors flattens a validation error into field -> failed tag pairs
// suitable for an error response body.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
