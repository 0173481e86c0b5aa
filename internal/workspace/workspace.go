// Package workspace owns the single shared directory root that holds all
// cloned charm sources during a matrix run. The root is wiped and recreated
// at the start of every run and left in place afterwards for inspection;
// nothing else deletes it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// sentinelFile marks a charm directory whose environment build completed.
// A charm directory without it is stale (a previous run died mid-build)
// and gets wiped and re-provisioned rather than trusted.
const sentinelFile = ".interface-venv/.ok"

// Workspace manages the shared clone root for one run.
type Workspace struct {
	root  string
	flock *flock.Flock
}

// New creates a Workspace rooted at the given directory. The directory does
// not need to exist yet; Reset creates it.
func New(root string) *Workspace {
	return &Workspace{
		root:  root,
		flock: flock.New(root + ".lock"),
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Acquire takes a non-blocking exclusive lock guarding the workspace root,
// so two runs never share it. Returns an error if another run holds it.
// The lock file lives next to the root, outside the tree Reset deletes.
func (w *Workspace) Acquire() error {
	acquired, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace %s: %w", w.root, err)
	}
	if !acquired {
		return fmt.Errorf("workspace %s is in use by another run", w.root)
	}
	return nil
}

// Release drops the workspace lock.
func (w *Workspace) Release() error {
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace %s: %w", w.root, err)
	}
	return nil
}

// Reset deletes the workspace root recursively and recreates it empty.
// Idempotent and safe to call when the root is absent. A deletion failure
// is returned as-is: the run must not start over a possibly-stale tree.
func (w *Workspace) Reset() error {
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("failed to reset workspace %s: %w", w.root, err)
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", w.root, err)
	}
	return nil
}

// CharmDir returns the directory a charm's source is cloned into. Only the
// provisioner creates these; no component reads another charm's directory.
func (w *Workspace) CharmDir(name string) string {
	return filepath.Join(w.root, name)
}

// IsProvisioned reports whether a charm's directory exists and carries the
// provision sentinel, meaning clone and environment build both completed.
func (w *Workspace) IsProvisioned(name string) bool {
	_, err := os.Stat(filepath.Join(w.CharmDir(name), sentinelFile))
	return err == nil
}

// MarkProvisioned writes the provision sentinel for a charm. Called only
// after the environment build succeeds. The write is atomic (temp file +
// rename) so a crash never leaves a half-written sentinel behind.
func (w *Workspace) MarkProvisioned(name string) error {
	path := filepath.Join(w.CharmDir(name), sentinelFile)
	if err := atomicWrite(path, []byte("ok\n")); err != nil {
		return fmt.Errorf("failed to mark %s provisioned: %w", name, err)
	}
	return nil
}

// ClearCharm removes a charm's directory entirely, used when a stale
// (sentinel-less) directory is found at provisioning time.
func (w *Workspace) ClearCharm(name string) error {
	if err := os.RemoveAll(w.CharmDir(name)); err != nil {
		return fmt.Errorf("failed to clear charm dir for %s: %w", name, err)
	}
	return nil
}

// atomicWrite writes data to a file via a temp file and rename so readers
// never observe a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	closed := tempFile
	tempFile = nil

	if err := os.Rename(closed.Name(), path); err != nil {
		os.Remove(closed.Name())
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
