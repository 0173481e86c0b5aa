// Package matrix drives the interface × version × role × charm traversal.
// Every unit of work runs to a single boolean outcome; a broken charm never
// aborts the run, and the only run-fatal condition is a workspace reset
// failure before traversal starts.
package matrix

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/relmatrix/internal/provision"
	"github.com/harrison/relmatrix/internal/registry"
	"github.com/harrison/relmatrix/internal/synth"
	"github.com/harrison/relmatrix/internal/workspace"
)

// Logger is the logging surface the matrix needs.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
	LogStage(stage, charm, detail string)
	LogUnitResult(iface, version, role, charm string, passed bool)
}

// Orchestrator owns one full matrix run.
type Orchestrator struct {
	ws   *workspace.Workspace
	prov *provision.Provisioner
	exec *Executor
	log  Logger

	// MaxConcurrency is the number of charms tested concurrently within a
	// role. 1 reproduces the fully sequential reference behavior.
	MaxConcurrency int

	// charmLocks serializes provisioning per charm name, so the same charm
	// appearing under several roles is never cloned twice concurrently.
	mu         sync.Mutex
	charmLocks map[string]*sync.Mutex
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(ws *workspace.Workspace, prov *provision.Provisioner, exec *Executor, log Logger) *Orchestrator {
	return &Orchestrator{
		ws:             ws,
		prov:           prov,
		exec:           exec,
		log:            log,
		MaxConcurrency: 1,
		charmLocks:     make(map[string]*sync.Mutex),
	}
}

// Run resets the workspace exactly once and traverses the whole registry,
// folding every unit outcome into the ResultTree. The reset is the single
// synchronization barrier before any provisioning; its failure aborts the
// run, since no isolation guarantee holds over a stale workspace.
func (o *Orchestrator) Run(ctx context.Context, reg *registry.Registry) (*ResultTree, error) {
	if err := o.ws.Reset(); err != nil {
		return nil, fmt.Errorf("workspace reset failed: %w", err)
	}

	tree := &ResultTree{}
	for _, iface := range reg.Interfaces {
		o.log.LogInfo("Running tests for interface: " + iface.Name)
		ir := InterfaceResult{Name: iface.Name}

		for _, ve := range iface.Versions {
			o.log.LogInfo("Running tests for version: " + ve.Version.Label)
			vr := VersionResult{Label: ve.Version.Label}

			for _, role := range registry.RoleOrder {
				vr.Roles = append(vr.Roles, o.runRole(ctx, iface, ve, role))
			}
			ir.Versions = append(ir.Versions, vr)
		}
		tree.Interfaces = append(tree.Interfaces, ir)
	}

	if len(reg.Interfaces) == 0 {
		o.log.LogWarn("No tests collected.")
	}
	return tree, nil
}

// runRole runs all charms registered for one role of one interface version.
// A role with no tests or no charms is recorded as empty (not attempted),
// which is a deliberate signal distinct from "attempted and failed".
func (o *Orchestrator) runRole(ctx context.Context, iface registry.InterfaceEntry, ve registry.VersionEntry, role registry.Role) RoleResult {
	rr := RoleResult{Role: role.String(), Charms: []CharmResult{}}
	spec := ve.Roles[role]

	if len(spec.Tests) == 0 {
		o.log.LogInfo(fmt.Sprintf("No tests specified for %s/%s; skipping...", iface.Name, role))
		return rr
	}
	if len(spec.Charms) == 0 {
		o.log.LogInfo(fmt.Sprintf("No charms registered for %s/%s; skipping...", iface.Name, role))
		return rr
	}

	o.log.LogInfo(fmt.Sprintf("Running %d %s interface tests on %d charm(s) as %s",
		len(spec.Tests), iface.Name, len(spec.Charms), role))

	results := make([]CharmResult, len(spec.Charms))

	if o.MaxConcurrency <= 1 {
		for i, charm := range spec.Charms {
			results[i] = o.runUnit(ctx, iface, ve, role, charm)
		}
	} else {
		// Independent slots per charm; unit failures stay inside their slot
		// and never cancel siblings, so the group only limits parallelism.
		g := &errgroup.Group{}
		g.SetLimit(o.MaxConcurrency)
		for i, charm := range spec.Charms {
			i, charm := i, charm
			g.Go(func() error {
				results[i] = o.runUnit(ctx, iface, ve, role, charm)
				return nil
			})
		}
		g.Wait()
	}

	rr.Charms = results
	return rr
}

// runUnit carries one (interface, version, role, charm) unit through
// provisioning, fixture resolution, synthesis, and execution to its boolean
// outcome. Both SetupError and InterfaceTestError are caught exactly here.
func (o *Orchestrator) runUnit(ctx context.Context, iface registry.InterfaceEntry, ve registry.VersionEntry, role registry.Role, charm registry.Charm) CharmResult {
	passed := o.testCharm(ctx, iface, ve, role, charm) == nil

	result := CharmResult{Name: charm.Name, Passed: passed}
	o.log.LogUnitResult(iface.Name, ve.Version.Label, role.String(), charm.Name, passed)
	return result
}

// testCharm runs the unit pipeline and returns the terminal error, already
// logged with full context. Any error means a false leaf.
func (o *Orchestrator) testCharm(ctx context.Context, iface registry.InterfaceEntry, ve registry.VersionEntry, role registry.Role, charm registry.Charm) error {
	unit := fmt.Sprintf("%s/%s/%s", iface.Name, role, charm.Name)

	sourceDir, err := o.provisionLocked(ctx, charm)
	if err != nil {
		o.log.LogWarn(fmt.Sprintf("test setup failed for %s: %v", unit, err))
		return err
	}

	fixture, err := provision.ResolveFixture(charm, sourceDir)
	if err != nil {
		o.log.LogWarn(fmt.Sprintf("test setup failed for %s: %v", unit, err))
		return err
	}

	artifact, err := synth.Generate(iface.Name, ve.Version.Number, fixture.Identifier, filepath.Dir(fixture.Path))
	if err != nil {
		setupErr := &provision.SetupError{Charm: charm.Name, Stage: "synthesize", Err: err}
		o.log.LogWarn(fmt.Sprintf("test setup failed for %s: %v", unit, setupErr))
		return setupErr
	}

	if err := o.exec.Execute(ctx, charm.Name, sourceDir, artifact); err != nil {
		o.log.LogWarn(fmt.Sprintf("interface tests for %s failed: %v", unit, err))
		return err
	}
	return nil
}

// provisionLocked serializes provisioning per charm name: with a worker
// pool, two units for the same charm must not clone into the same
// directory concurrently.
func (o *Orchestrator) provisionLocked(ctx context.Context, charm registry.Charm) (string, error) {
	lock := o.charmLock(charm.Name)
	lock.Lock()
	defer lock.Unlock()

	return o.prov.Provision(ctx, charm)
}

// charmLock returns the mutex for a charm name, creating it on first use.
func (o *Orchestrator) charmLock(name string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.charmLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		o.charmLocks[name] = lock
	}
	return lock
}
