package model

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentLoad      = errors.New("document load failed")
	ErrFeedFetch         = errors.New("feed fetch failed")
	ErrInvalidInvocation = errors.New("invalid invocation")
)

// Error attaches one of the error kinds above to a failing operation.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func DocumentError(op string, err error) error {
	return &Error{Kind: ErrDocumentLoad, Op: op, Err: err}
}

func DocumentErrorf(op, format string, args ...any) error {
	return &Error{Kind: ErrDocumentLoad, Op: op, Err: fmt.Errorf(format, args...)}
}

func FeedError(op string, err error) error {
	return &Error{Kind: ErrFeedFetch, Op: op, Err: err}
}

func FeedErrorf(op, format string, args ...any) error {
	return &Error{Kind: ErrFeedFetch, Op: op, Err: fmt.Errorf(format, args...)}
}

func InvocationErrorf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInvocation, Err: fmt.Errorf(format, args...)}
}
