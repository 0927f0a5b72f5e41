package validation

import (
	"fmt"
	"strings"
	"time"
)

// Validator collects field errors for programmatic checks, chiefly the
// Validate methods of config sections. Field names use the YAML keys.
type Validator struct {
	errors []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the error returned by Validator.Err.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) AddError(field, message string) *Validator {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the collected errors in the order they were found.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Err returns the collected errors as Errors, or a nil error when there
// are none.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return Errors(v.errors)
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf checks that a non-empty value is in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	return v.AddError(field, fmt.Sprintf("must be one of: %s (got: %q)", strings.Join(allowed, ", "), value))
}

// NonNegative checks a duration where zero means "no bound".
func (v *Validator) NonNegative(field string, d time.Duration) *Validator {
	if d < 0 {
		v.AddError(field, fmt.Sprintf("must not be negative (got: %s)", d))
	}
	return v
}

// Between checks lo <= n <= hi.
func (v *Validator) Between(field string, n, lo, hi int) *Validator {
	if n < lo || n > hi {
		v.AddError(field, fmt.Sprintf("must be between %d and %d (got: %d)", lo, hi, n))
	}
	return v
}

// Check adds err under field when it is non-nil.
func (v *Validator) Check(field string, err error) *Validator {
	if err != nil {
		v.AddError(field, err.Error())
	}
	return v
}

// Custom adds message under field when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
