package service

import (
	"errors"
	"fmt"

	"github.com/kmallmaperez/geocore/internal/domain"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBadRequest         = errors.New("bad request")
)

// ValidationError carries the engine findings that blocked a write.
type ValidationError struct {
	Findings []domain.Finding
}

func (e *ValidationError) Error() string {
	if len(e.Findings) == 0 {
		return ErrValidation.Error()
	}
	f := e.Findings[0]
	if len(e.Findings) == 1 {
		return fmt.Sprintf("%s: %s %s", ErrValidation, f.Field, f.Message)
	}
	return fmt.Sprintf("%s: %s %s (and %d more)", ErrValidation, f.Field, f.Message, len(e.Findings)-1)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
