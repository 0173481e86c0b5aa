package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/relmatrix/internal/registry"
)

// Default fixture conventions: where a charm keeps its interface tester
// fixture and what the fixture is called, unless the registry overrides them.
const (
	DefaultFixtureLocation   = "tests/interface/conftest.py"
	DefaultFixtureIdentifier = "interface_tester"
)

// FixtureSpec is the resolved location and identifier of a charm's tester
// fixture. Valid only for the provisioned tree it was resolved against.
type FixtureSpec struct {
	Path       string // absolute path to the fixture file
	Identifier string // fixture name the generated test requests
}

// ResolveFixture computes the fixture spec for a charm from the defaults and
// the charm's optional overrides. Location and identifier overrides apply
// independently. A charm whose resolved fixture file does not exist cannot
// be tested, so that is a SetupError rather than a silent skip.
func ResolveFixture(charm registry.Charm, sourceDir string) (FixtureSpec, error) {
	location := DefaultFixtureLocation
	identifier := DefaultFixtureIdentifier

	if ts := charm.TestSetup; ts != nil {
		if ts.Location != "" {
			location = ts.Location
		}
		if ts.Identifier != "" {
			identifier = ts.Identifier
		}
	}

	spec := FixtureSpec{
		Path:       filepath.Join(sourceDir, location),
		Identifier: identifier,
	}

	info, err := os.Stat(spec.Path)
	if err != nil {
		return FixtureSpec{}, &SetupError{
			Charm: charm.Name,
			Stage: "fixture",
			Err:   fmt.Errorf("fixture missing at %s: %w", spec.Path, err),
		}
	}
	if info.IsDir() {
		return FixtureSpec{}, &SetupError{
			Charm: charm.Name,
			Stage: "fixture",
			Err:   fmt.Errorf("fixture path %s is a directory", spec.Path),
		}
	}

	return spec, nil
}
