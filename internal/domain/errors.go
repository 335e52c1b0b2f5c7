package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTransportFailure  = errors.New("transport failure")
	ErrValidation        = errors.New("validation error")
	ErrAlreadyRated      = errors.New("already rated")
	ErrDuplicate         = errors.New("duplicate record")
)

// InvalidTransitionError reports a workflow guard failure. The record is left unchanged.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
