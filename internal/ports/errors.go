package ports

import (
	"errors"

	"github.com/yemenflix/yflix/internal/domain"
)

var ErrNotFound = errors.New("not found")

var ErrConflict = errors.New("conflict")

var ErrUnauthorized = errors.New("unauthorized")

var ErrForbidden = errors.New("forbidden")

var ErrInvalidTransition = domain.ErrInvalidTransition
