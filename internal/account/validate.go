package account

import (
	"net/mail"
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,50}$`)

// ValidateUsernameFormat checks the 4-50 alphanumeric rule. Uniqueness against
// active accounts is a separate, store-backed check on the service.
func ValidateUsernameFormat(v string) *FieldError {
	if v == "" {
		return &FieldError{Field: "username", Code: CodeRequired}
	}
	if !usernamePattern.MatchString(v) {
		return &FieldError{Field: "username", Code: CodeFormat}
	}
	return nil
}

// ValidateEmailFormat checks that v is a bare, well-formed address.
func ValidateEmailFormat(v string) *FieldError {
	if v == "" {
		return &FieldError{Field: "email", Code: CodeRequired}
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		// reject display-name forms like "Bob <bob@x.com>"
		return &FieldError{Field: "email", Code: CodeFormat}
	}
	return nil
}

// ValidatePasswordConfirmation fails on mismatch. It only applies when both
// values are present, so partial updates may omit the confirmation field.
func ValidatePasswordConfirmation(password, confirm string) *FieldError {
	if password == "" || confirm == "" {
		return nil
	}
	if password != confirm {
		return &FieldError{Field: "password_confirm", Code: CodeMismatch}
	}
	return nil
}
