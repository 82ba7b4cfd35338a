// Package apperr holds the error values shared by the server and client sides.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
	ErrBusy     = errors.New("another action is in flight")
	ErrNotReady = errors.New("idea is not loaded")
)

// RequestFailed is the uniform failure of a remote idea operation.
// Reason is short and human-readable; Err carries the cause and unwraps to
// ErrNotFound when the service answered 404.
type RequestFailed struct {
	Op     string
	Status int
	Reason string
	Err    error
}

func (e *RequestFailed) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *RequestFailed) Unwrap() error {
	return e.Err
}

// Message returns the text to show a user for err, or fallback when err
// carries nothing readable.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var rf *RequestFailed
	if errors.As(err, &rf) {
		return rf.Error()
	}
	switch {
	case errors.Is(err, ErrBusy):
		return "Another action is still running"
	case errors.Is(err, ErrNotReady):
		return "Idea is not loaded"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
