package matrix

import (
	"errors"
	"fmt"
)

// InterfaceTestError indicates the charm's environment was ready but the
// synthesized conformance test failed: the charm violates the interface
// contract, or the test harness raised an assertion. This is the only
// signal distinguishing "implementation bug" from "environment could not
// be prepared" (provision.SetupError).
type InterfaceTestError struct {
	Charm string
	Err   error
}

// Error implements the error interface for InterfaceTestError.
func (e *InterfaceTestError) Error() string {
	msg := fmt.Sprintf("interface tests failed for %s", e.Charm)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error wrapping support.
func (e *InterfaceTestError) Unwrap() error {
	return e.Err
}

// IsInterfaceTestError checks if the error is or wraps an InterfaceTestError.
func IsInterfaceTestError(err error) bool {
	var ite *InterfaceTestError
	return errors.As(err, &ite)
}
