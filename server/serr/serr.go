// Package serr holds the errors returned by the remora server backend. Its
// Error type can have several causes, and errors.Is matches an Error against
// any of them, so callers can check what went wrong without type assertions.
package serr

import "errors"

var (
	ErrNotFound      = errors.New("the requested entity could not be found")
	ErrDB            = errors.New("an error occurred with the DB")
	ErrBadArgument   = errors.New("one or more of the arguments is invalid")
	ErrBodyUnmarshal = errors.New("malformed data in request")
	ErrNoLanguage    = errors.New("no language with that name is loaded")
)

// Error is an error with a message and any number of causes. Its Error()
// text is the message followed by the text of the first cause.
//
// Create one with New or WrapDB.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message, the text of the first cause, or both joined by
// ": " when there are both.
func (e Error) Error() string {
	switch {
	case len(e.cause) == 0:
		return e.msg
	case e.msg == "":
		return e.cause[0].Error()
	default:
		return e.msg + ": " + e.cause[0].Error()
	}
}

// Unwrap returns the causes of e, or nil if it has none.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether target is an Error with the same message and causes.
// Matching against the causes themselves is done by errors.Is through Unwrap.
func (e Error) Is(target error) bool {
	if other, ok := target.(Error); ok && e.msg == other.msg && len(e.cause) == len(other.cause) {
		same := true
		for i := range e.cause {
			if e.cause[i] != other.cause[i] {
				same = false
				break
			}
		}
		return same
	}
	return false
}

// WrapDB creates an Error caused by both err and ErrDB. msg may be left as "".
func WrapDB(msg string, err error) Error {
	return Error{
		msg:   msg,
		cause: []error{err, ErrDB},
	}
}

// New creates an Error with the given message and causes.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}
