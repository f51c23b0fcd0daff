package validator

import "strings"

// ValidationErrors is the set of failed rules of one payload.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`   // JSON name of the field
	Tag     string `json:"tag"`     // rule that failed
	Message string `json:"message"` // translated message
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ""
	}
	msgs := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasErrors reports whether any rule failed.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// First returns the first message, or "" when nothing failed.
func (v *ValidationErrors) First() string {
	if !v.HasErrors() {
		return ""
	}
	return v.Errors[0].Message
}

// Failed reports whether field failed any rule.
func (v *ValidationErrors) Failed(field string) bool {
	if v == nil {
		return false
	}
	for _, fe := range v.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}
