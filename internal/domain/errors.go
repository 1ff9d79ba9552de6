package domain

import "errors"

var ErrInvalidTransition = errors.New("invalid state transition")
