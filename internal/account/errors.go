package account

import (
	"errors"
	"fmt"
	"strings"
)

// sentinel errors for common failure modes
var (
	ErrNotFound   = errors.New("account not found")
	ErrPermission = errors.New("operation not permitted")
)

// Field error codes. Conflict means a duplicate among active accounts.
const (
	CodeRequired = "required"
	CodeFormat   = "format"
	CodeConflict = "conflict"
	CodeMismatch = "mismatch"
)

// FieldError scopes a validation failure to a single input field.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

// FieldErrors collects every field failure of one request so the caller can
// report them all at once.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// HasConflict reports whether any field failed on active-scoped uniqueness.
func (e FieldErrors) HasConflict() bool {
	for _, fe := range e {
		if fe.Code == CodeConflict {
			return true
		}
	}
	return false
}
