// Package validation checks configuration structs through validator tags and
// API payloads through a small chained field collector.
package validation

import (
	"slices"
	"strings"

	"github.com/kbukum/voicecap/errors"
)

// FieldError is one rejected field keyed by its wire name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates FieldErrors. Checks chain and never stop early, so
// one Err call reports every problem with a payload.
type Validator struct {
	errors []FieldError
}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []FieldError { return v.errors }

// Err returns an INVALID_INPUT AppError listing every field error, or nil.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return fieldsError(v.errors)
}

func fieldsError(fields []FieldError) error {
	parts := make([]string, len(fields))
	for i, e := range fields {
		parts[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}

// Required rejects empty and whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf rejects values outside allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Custom(slices.Contains(allowed, value), field, "must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message for field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
