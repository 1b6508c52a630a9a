package core

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication = errors.New("invalid credentials")
	ErrUnauthorized   = errors.New("insufficient privilege")
	ErrNotFound       = errors.New("not found or already processed")

	// ErrDuplicate is returned by storage implementations if a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrNotApproved is an ErrUnauthorized for accounts which have not been approved yet.
	ErrNotApproved error = notApprovedError{}
)

type notApprovedError struct{}

func (notApprovedError) Error() string {
	return "account not approved yet, please contact an admin for approval"
}

func (notApprovedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// A ValidationError describes malformed or conflicting input.
type ValidationError struct {
	Field   string // empty if the error is not related to a single field
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field string, format string, args ...interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
