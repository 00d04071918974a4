package request

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Request service implementations and validations.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("request not found")
	ErrNotLive        = errors.New("request not live")
)

type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsInvalidRequest indicates if err is ErrInvalidRequest.
func IsInvalidRequest(err error) bool {
	return unwrapError(err) == ErrInvalidRequest
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
}

// IsNotLive indicates if err is ErrNotLive.
func IsNotLive(err error) bool {
	return unwrapError(err) == ErrNotLive
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
