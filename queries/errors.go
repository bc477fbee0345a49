package queries

import (
	"errors"
	"fmt"

	"github.com/jinzhu/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrLimitReached      = errors.New("plan limit reached")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUpstream          = errors.New("upstream provider failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// wrapNotFound turns gorm's record-not-found into ErrNotFound naming what was missing.
func wrapNotFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if gorm.IsRecordNotFoundError(err) {
		return notFoundf("%s", what)
	}
	return err
}
