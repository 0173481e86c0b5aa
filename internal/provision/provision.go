package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harrison/relmatrix/internal/registry"
	"github.com/harrison/relmatrix/internal/workspace"
)

// venvDir is the per-charm virtual environment directory, created inside the
// charm's cloned source.
const venvDir = ".interface-venv"

// harnessPackages are installed into every charm environment before the
// charm's own requirements: the host test framework plus the interface
// test harness.
const harnessPackages = "setuptools pytest pytest-interface-tester"

// Logger is the subset of logging used during provisioning.
type Logger interface {
	LogStage(stage, charm, detail string)
	LogDebug(message string)
	LogWarn(message string)
}

// Provisioner clones charm sources into the workspace and builds their
// isolated environments. Provisioning is idempotent per charm name within a
// run: a charm directory carrying the provision sentinel is reused as-is,
// with no network cost and no environment rebuild.
type Provisioner struct {
	ws     *workspace.Workspace
	runner CommandRunner
	log    Logger

	// MkvenvCmd creates the virtual environment ("python -m virtualenv" by default).
	MkvenvCmd string
	// CloneTimeout bounds the git clone (0 = none).
	CloneTimeout time.Duration
	// InstallTimeout bounds each install step (0 = none).
	InstallTimeout time.Duration
}

// NewProvisioner creates a Provisioner over the given workspace.
func NewProvisioner(ws *workspace.Workspace, runner CommandRunner, log Logger, mkvenvCmd string) *Provisioner {
	return &Provisioner{
		ws:        ws,
		runner:    runner,
		log:       log,
		MkvenvCmd: mkvenvCmd,
	}
}

// Provision ensures the charm's source is cloned and its environment built,
// returning the charm's source directory. A directory with a valid sentinel
// is reused unchanged; a directory without one is wiped first, so a build
// that died halfway is retried instead of silently trusted.
func (p *Provisioner) Provision(ctx context.Context, charm registry.Charm) (string, error) {
	dir := p.ws.CharmDir(charm.Name)

	if p.ws.IsProvisioned(charm.Name) {
		p.log.LogDebug(fmt.Sprintf("reusing provisioned charm %s at %s", charm.Name, dir))
		return dir, nil
	}

	if _, err := os.Stat(dir); err == nil {
		p.log.LogWarn(fmt.Sprintf("charm %s has a stale directory without a provision sentinel; re-provisioning", charm.Name))
		if err := p.ws.ClearCharm(charm.Name); err != nil {
			return "", &SetupError{Charm: charm.Name, Stage: "clone", Err: err}
		}
	}

	if err := p.clone(ctx, charm, dir); err != nil {
		return "", err
	}
	if err := p.buildEnv(ctx, charm.Name, dir); err != nil {
		return "", err
	}

	if err := p.ws.MarkProvisioned(charm.Name); err != nil {
		return "", &SetupError{Charm: charm.Name, Stage: "install", Err: err}
	}
	return dir, nil
}

// clone performs a shallow, single-branch clone of the charm repository.
func (p *Provisioner) clone(ctx context.Context, charm registry.Charm, dir string) error {
	branch := charm.Branch
	branchOption := ""
	if branch != "" {
		branchOption = fmt.Sprintf("--branch %s ", branch)
		p.log.LogWarn(fmt.Sprintf("custom branch provided for %s; this should only be done in staging", charm.Name))
	} else {
		branch = "main"
	}
	p.log.LogStage("clone", charm.Name, fmt.Sprintf("%s@%s", charm.URL, branch))

	command := fmt.Sprintf("git clone --quiet --depth 1 %s%s %s", branchOption, charm.URL, dir)
	if output, err := p.run(ctx, "", command, p.CloneTimeout); err != nil {
		return &SetupError{
			Charm: charm.Name,
			Stage: "clone",
			Err:   fmt.Errorf("%w; check the charms.yaml config%s", err, outputSuffix(output)),
		}
	}
	return nil
}

// buildEnv creates the charm's virtual environment and installs, in order,
// the test harness packages and the charm's own requirements. Any step
// failing leaves no usable environment; there is no retry.
func (p *Provisioner) buildEnv(ctx context.Context, name, dir string) error {
	p.log.LogStage("venv", name, "creating "+venvDir)
	if output, err := p.run(ctx, dir, fmt.Sprintf("%s ./%s", p.MkvenvCmd, venvDir), p.InstallTimeout); err != nil {
		return &SetupError{Charm: name, Stage: "venv", Err: fmt.Errorf("%w%s", err, outputSuffix(output))}
	}

	p.log.LogStage("install", name, "installing test harness")
	pip := venvDir + "/bin/python -m pip install"
	if output, err := p.run(ctx, dir, fmt.Sprintf("%s %s", pip, harnessPackages), p.InstallTimeout); err != nil {
		return &SetupError{Charm: name, Stage: "install", Err: fmt.Errorf("%w%s", err, outputSuffix(output))}
	}

	p.log.LogStage("install", name, "installing charm requirements")
	if output, err := p.run(ctx, dir, fmt.Sprintf("%s -r requirements.txt", pip), p.InstallTimeout); err != nil {
		return &SetupError{Charm: name, Stage: "install", Err: fmt.Errorf("%w%s", err, outputSuffix(output))}
	}
	return nil
}

// run executes a command with an optional per-stage timeout. A deadline hit
// is reported as a timeout rather than a bare context error.
func (p *Provisioner) run(ctx context.Context, dir, command string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := p.runner.Run(ctx, dir, command)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("command %q timed out after %v", command, timeout)
	}
	if err != nil {
		return output, fmt.Errorf("command %q failed: %w", command, err)
	}
	return output, nil
}

// outputSuffix formats captured subprocess output for inclusion in an error.
func outputSuffix(output string) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return ""
	}
	return "\noutput:\n" + trimmed
}
