package controller

import (
	"errors"
	"fmt"
)

var (
	ErrRejected          = errors.New("upload rejected")
	ErrCanceled          = errors.New("upload canceled")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrProcessingFailed  = errors.New("processing failed")
	ErrNotResumable      = errors.New("document cannot be resumed")
)

// Rejection reasons reported by ValidationError.
const (
	ReasonInvalidFile     = "invalid_file"
	ReasonUnsupportedType = "unsupported_type"
	ReasonTooLarge        = "too_large"
)

// ValidationError is a user-facing rejection raised before any network call.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrRejected
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
