// Package provision prepares a charm for conformance testing: it clones the
// charm's source into the shared workspace, builds its isolated virtual
// environment, and resolves the tester fixture the generated test will
// request. All failures here are setup failures, distinct from a failing
// interface test.
package provision

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts shell command execution for testability. The
// working directory is an explicit per-invocation parameter; implementations
// must never mutate the process's ambient working directory.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (output string, err error)
}

// ShellCommandRunner executes commands via the system shell.
type ShellCommandRunner struct{}

// NewShellCommandRunner creates a CommandRunner that executes real shell commands.
func NewShellCommandRunner() *ShellCommandRunner {
	return &ShellCommandRunner{}
}

// Run executes a command via sh -c in the given directory and returns
// combined stdout/stderr.
func (r *ShellCommandRunner) Run(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}

	output, err := cmd.CombinedOutput()
	return string(output), err
}
