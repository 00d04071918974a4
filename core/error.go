package core

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors
var (
	ErrCapacity      = errors.New("capacity reached")
	ErrConflict      = errors.New("conflicting entities")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("origin unauthorized")
)

// Error is a wraper used to transport core specific errors.
type Error struct {
	Err error
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsCapacity indicates if err is ErrCapacity.
func IsCapacity(err error) bool {
	return unwrapError(err) == ErrCapacity
}

// IsConflict indicates if err is ErrConflict.
func IsConflict(err error) bool {
	return unwrapError(err) == ErrConflict
}

// IsInvalidEntity indciates if err is ErrInvalidEntity.
func IsInvalidEntity(err error) bool {
	return unwrapError(err) == ErrInvalidEntity
}

// IsInvalidState indicates if err is ErrInvalidState.
func IsInvalidState(err error) bool {
	return unwrapError(err) == ErrInvalidState
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
}

// IsUnauthorized indicates if err is ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return unwrapError(err) == ErrUnauthorized
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.Err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		Err: err,
		Msg: fmt.Sprintf(
			errFmt,
			err.Error(),
			fmt.Sprintf(format, args...),
		),
	}
}
