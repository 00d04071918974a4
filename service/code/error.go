package code

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Code service implementations and validations.
var (
	ErrAlreadyUsed = errors.New("code already used")
	ErrInvalidCode = errors.New("invalid code")
	ErrNotFound    = errors.New("code not found")
	ErrNotUnique   = errors.New("code not unique")
)

type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsAlreadyUsed indicates if err is ErrAlreadyUsed.
func IsAlreadyUsed(err error) bool {
	return unwrapError(err) == ErrAlreadyUsed
}

// IsInvalidCode indicates if err is ErrInvalidCode.
func IsInvalidCode(err error) bool {
	return unwrapError(err) == ErrInvalidCode
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
}

// IsNotUnique indicates if err is ErrNotUnique.
func IsNotUnique(err error) bool {
	return unwrapError(err) == ErrNotUnique
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		err: err,
		msg: fmt.Sprintf(
			errFmt,
			err.Error(),
			fmt.Sprintf(format, args...),
		),
	}
}
