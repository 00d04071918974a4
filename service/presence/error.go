package presence

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Presence service implementations and validations.
var (
	ErrInvalidPeer = errors.New("invalid peer")
)

type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsInvalidPeer indicates if err is ErrInvalidPeer.
func IsInvalidPeer(err error) bool {
	return unwrapError(err) == ErrInvalidPeer
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
