package gate

import (
	"errors"
	"fmt"
)

// ExecutionError wraps a failure raised by a gated executor run directly.
// Non-zero shell exits are results, not ExecutionErrors.
type ExecutionError struct {
	Kind  string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s execution failed: %v", e.Kind, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsExecutionError checks if an error is an ExecutionError.
func IsExecutionError(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
