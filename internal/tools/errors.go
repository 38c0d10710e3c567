package tools

import (
	"errors"
	"fmt"
)

// UnknownToolError is returned when a call names a tool the registry does
// not hold. No handler runs.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Name)
}

// ArgumentError indicates the call's arguments do not match the tool's
// declared parameters.
type ArgumentError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Param, e.Tool, e.Reason)
}

// IsUnknownToolError checks if an error is an UnknownToolError.
func IsUnknownToolError(err error) bool {
	var target *UnknownToolError
	return errors.As(err, &target)
}

// IsArgumentError checks if an error is an ArgumentError.
func IsArgumentError(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}
