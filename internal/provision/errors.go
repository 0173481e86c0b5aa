package provision

import (
	"errors"
	"fmt"
)

// SetupError indicates a charm's test environment could not be made ready:
// clone failure, environment build failure, or a missing fixture. It says
// nothing about whether the charm satisfies the interface contract.
type SetupError struct {
	Charm string // name of the charm whose setup failed
	Stage string // stage that failed: clone, venv, install, fixture
	Err   error  // underlying error (optional)
}

// Error implements the error interface for SetupError.
func (e *SetupError) Error() string {
	msg := fmt.Sprintf("setup failed for %s at %s stage", e.Charm, e.Stage)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error wrapping support.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsSetupError checks if the error is or wraps a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
