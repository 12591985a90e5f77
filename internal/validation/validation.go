package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a non-empty list of field errors. It is returned as an error by
// the domain packages whenever user input blocks an operation.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns the collected errors as an error, or nil when there are none.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required appends an error when value is blank.
func (e *Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		*e = append(*e, FieldError{Field: field, Message: field + " is required"})
		return false
	}
	return true
}

// MaxLength appends an error when value is longer than max characters.
func (e *Errors) MaxLength(field, value string, max int) bool {
	if len([]rune(value)) > max {
		*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)})
		return false
	}
	return true
}

// MinLength appends an error when value is shorter than min characters.
func (e *Errors) MinLength(field, value string, min int) bool {
	if len([]rune(value)) < min {
		*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters", field, min)})
		return false
	}
	return true
}

// Email appends an error when value is not a bare email address.
func (e *Errors) Email(field, value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		*e = append(*e, FieldError{Field: field, Message: field + " must be a valid email address"})
		return false
	}
	return true
}

// OneOf appends an error when value is not one of allowed.
func (e *Errors) OneOf(field, value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	quoted := make([]string, 0, len(allowed))
	for _, a := range allowed {
		quoted = append(quoted, fmt.Sprintf("%q", a))
	}
	*e = append(*e, FieldError{Field: field, Message: field + " must be one of " + strings.Join(quoted, ", ")})
	return false
}

// Add appends a custom field error.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}
