package services

import (
	"errors"
	"fmt"

	"bookcraft-backend/internal/backend"
)

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrEmptyBody  = errors.New("document body is empty")
)

// GenerationError reports which step of a document operation failed and the
// message the backend gave for it.
type GenerationError struct {
	Step           string
	BackendMessage string
	Err            error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Step, e.BackendMessage)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func newGenerationError(step string, err error) *GenerationError {
	msg := err.Error()
	var be *backend.BackendError
	if errors.As(err, &be) {
		msg = be.Message
	}
	return &GenerationError{Step: step, BackendMessage: msg, Err: err}
}
