package measure

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed config command or a factory that failed to
// construct its capability. Config errors indicate embedder misconfiguration
// and are never recovered locally.
type ConfigError struct {
	// Arg names the offending argument ("processor", "storage", ...), if any.
	Arg     string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Arg != "" {
		msg = e.Arg + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", msg, e.Err)
	}
	return "config: " + msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err contains a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// EventError reports a malformed event or set command.
type EventError struct {
	Command string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Command, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
