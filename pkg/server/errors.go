package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for dispatch failures.
var (
	// ErrNoAction is returned when a POST names no action at all.
	ErrNoAction = errors.New("server: no action requested")

	// ErrUnknownAction is returned when a POST names only unregistered actions.
	ErrUnknownAction = errors.New("server: unknown action")

	// ErrNoLoader is returned for GET on a page without a load function.
	ErrNoLoader = errors.New("server: page has no load function")
)

// DispatchError wraps a server action failure with its page and action.
type DispatchError struct {
	Path   string
	Action string // "name" or "name=key"
	Err    error
}

// Error returns the error message with dispatch context.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("server: %s %s: %v", e.Path, e.Action, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
