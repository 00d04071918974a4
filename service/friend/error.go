package friend

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Friend service implementations and validations.
var (
	ErrEmptySource   = errors.New("empty source")
	ErrInvalidFriend = errors.New("invalid friend")
	ErrNotFound      = errors.New("friend not found")
)

type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsEmptySource indicates if err is ErrEmptySource.
func IsEmptySource(err error) bool {
	return unwrapError(err) == ErrEmptySource
}

// IsInvalidFriend indicates if err is ErrInvalidFriend.
func IsInvalidFriend(err error) bool {
	return unwrapError(err) == ErrInvalidFriend
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
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
