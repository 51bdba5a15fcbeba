package todo

import (
	"errors"
)

var (
	ErrValidation = errors.New("invalid todo data")
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrNoChanges  = errors.New("nothing to update")
)

// ValidationError is raised before any request is issued.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

var (
	errNegative   = errors.New("must not be negative")
	errLimitRange = errors.New("must be between 1 and 100")
	errTooLong    = errors.New("is too long")
)
