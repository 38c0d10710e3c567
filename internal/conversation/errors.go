package conversation

import (
	"errors"
	"fmt"
)

// TurnFailedError is returned when every attempt of a turn failed.
type TurnFailedError struct {
	Attempts int
	Last     error
}

func (e *TurnFailedError) Error() string {
	return fmt.Sprintf("turn failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *TurnFailedError) Unwrap() error {
	return e.Last
}

// IsTurnFailedError checks if an error is a TurnFailedError.
func IsTurnFailedError(err error) bool {
	var target *TurnFailedError
	return errors.As(err, &target)
}
