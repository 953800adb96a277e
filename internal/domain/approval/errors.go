package approval

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("leave request not found")
	// ErrNotFoundOrExpired does not say which: the token may be unknown, already
	// decided or outside its window.
	ErrNotFoundOrExpired = errors.New("leave request not found or no longer actionable")
	ErrValidation        = errors.New("leave request validation failed")
	ErrInvalidAction     = errors.New("invalid target action")
	ErrUndecided         = errors.New("leave request has not been decided")
)

// ValidationError lists the payload fields that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
