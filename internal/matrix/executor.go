package matrix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/relmatrix/internal/provision"
)

// pythonPath makes the charm's own source and vendored libraries importable
// by the test harness.
const pythonPath = "src:lib"

// venvPython is the interpreter inside the charm's isolated environment.
const venvPython = ".interface-venv/bin/python"

// Executor runs a synthesized test artifact inside a charm's isolated
// environment. One invocation per unit of work, no retry.
type Executor struct {
	runner provision.CommandRunner
	log    Logger

	// TestTimeout bounds the pytest invocation (0 = none).
	TestTimeout time.Duration
}

// NewExecutor creates an Executor using the given command runner.
func NewExecutor(runner provision.CommandRunner, log Logger) *Executor {
	return &Executor{runner: runner, log: log}
}

// Execute runs the host test framework against the single synthesized
// artifact, from the charm's root directory. A non-zero exit becomes an
// InterfaceTestError; so does hitting the configured test timeout.
func (e *Executor) Execute(ctx context.Context, charmName, charmDir, artifactPath string) error {
	if e.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.TestTimeout)
		defer cancel()
	}

	e.log.LogStage("test", charmName, artifactPath)

	command := fmt.Sprintf("PYTHONPATH=%s %s -m pytest %s", pythonPath, venvPython, artifactPath)
	output, err := e.runner.Run(ctx, charmDir, command)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &InterfaceTestError{
				Charm: charmName,
				Err:   fmt.Errorf("pytest timed out after %v", e.TestTimeout),
			}
		}
		return &InterfaceTestError{
			Charm: charmName,
			Err:   fmt.Errorf("%w%s", err, testOutputSuffix(output)),
		}
	}
	return nil
}

// testOutputSuffix keeps failing pytest output attached to the error so the
// warn log carries the evidence.
func testOutputSuffix(output string) string {
	if output == "" {
		return ""
	}
	return "\noutput:\n" + output
}
