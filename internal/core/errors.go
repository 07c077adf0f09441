package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a message id does not exist
	ErrNotFound = errors.New("message not found")
	// ErrExtractionFailed is returned when a message cannot be summarised
	ErrExtractionFailed = errors.New("content extraction failed")
	// ErrNothingToDo is returned when no query clause is active
	ErrNothingToDo = errors.New("no cleanup criteria configured")
	// ErrInvalidDecision is returned when a model reply is not a usable decision
	ErrInvalidDecision = errors.New("invalid classification response")
	// ErrInvalidEdit is returned when a preferences edit is rejected
	ErrInvalidEdit = errors.New("invalid preferences edit")
)

// ProviderError is a mail provider failure tagged as transient or fatal
type ProviderError struct {
	Op        string
	Code      int
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s provider error (%d): %v", e.Op, kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Op, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider error worth retrying
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
