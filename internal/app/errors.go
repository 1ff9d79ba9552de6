package app

import (
	"errors"

	"github.com/yemenflix/yflix/internal/ports"
)

var (
	ErrNotFound          = ports.ErrNotFound
	ErrConflict          = ports.ErrConflict
	ErrUnauthorized      = ports.ErrUnauthorized
	ErrForbidden         = ports.ErrForbidden
	ErrInvalidTransition = ports.ErrInvalidTransition
)

// CodedError porte un code d'erreur stable renvoyé au client
// (ex: invalid_params, invalid_state, plan_required).
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func invalidParams(msg string) error {
	return &CodedError{Code: "invalid_params", Message: msg}
}

func invalidState(msg string) error {
	return &CodedError{Code: "invalid_state", Message: msg, Err: ErrInvalidTransition}
}

// CodeOf renvoie le code d'une CodedError, "" sinon.
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
