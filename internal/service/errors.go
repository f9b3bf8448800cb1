package service

import (
	"errors"
	"fmt"

	"github.com/timmy/personashop/internal/domain"
)

// Sentinel errors returned by the service layer. Handlers map them to
// status codes with errors.Is; anything else is an internal error.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("already exists")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// storeErr maps repository sentinels onto service sentinels, naming what
// failed to resolve.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	case errors.Is(err, domain.ErrDuplicate):
		return fmt.Errorf("%s %w", what, ErrConflict)
	default:
		return fmt.Errorf("failed to load %s: %w", what, err)
	}
}
