package datalayer

import (
	"errors"
	"fmt"
)

// DispatchError reports the failure of one command's handler.
// Other commands are unaffected by it.
type DispatchError struct {
	Command Command
	Err     error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %q (seq=%d): %v", e.Command.Name, e.Command.Seq, e.Err)
}

// Unwrap returns the handler's error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// DispatchErrors returns every DispatchError within err, in order.
// Joined errors are flattened at any depth; other wrappers use errors.As.
func DispatchErrors(err error) []*DispatchError {
	if err == nil {
		return nil
	}

	var out []*DispatchError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, DispatchErrors(e)...)
		}
		return out
	}

	var de *DispatchError
	if errors.As(err, &de) {
		out = append(out, de)
	}
	return out
}

// FailedCommands returns the commands whose dispatch failed within err.
func FailedCommands(err error) []Command {
	var out []Command
	for _, de := range DispatchErrors(err) {
		out = append(out, de.Command)
	}
	return out
}
