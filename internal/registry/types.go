// Package registry models the interface test registry: the declarative
// description of which interfaces exist, at which versions, and which charms
// implement each role. The orchestrator only traverses this structure, it
// never mutates it.
package registry

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Role is one side of an interface contract.
type Role int

const (
	// RoleProvider is the side that serves the interface.
	RoleProvider Role = iota
	// RoleRequirer is the side that consumes the interface.
	RoleRequirer
)

// RoleOrder is the fixed traversal order for roles, independent of how the
// registry on disk happens to list them.
var RoleOrder = []Role{RoleProvider, RoleRequirer}

// String returns the registry spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleProvider:
		return "provider"
	case RoleRequirer:
		return "requirer"
	default:
		return "unknown"
	}
}

// Version is an interface version, parsed once from its "v<N>" label.
type Version struct {
	Label  string // e.g. "v2"
	Number int    // e.g. 2
}

// ParseVersionLabel parses a "v<N>" version label into a Version.
func ParseVersionLabel(label string) (Version, error) {
	if !strings.HasPrefix(label, "v") {
		return Version{}, fmt.Errorf("version label %q must start with 'v'", label)
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 0 {
		return Version{}, fmt.Errorf("version label %q must be 'v' followed by a non-negative integer", label)
	}
	return Version{Label: label, Number: n}, nil
}

// TestSetup holds a charm's optional overrides for where its tester fixture
// lives and what it is called. Either field may be empty, in which case the
// corresponding default applies.
type TestSetup struct {
	Location   string `yaml:"location"`
	Identifier string `yaml:"identifier"`
}

// Charm identifies one test subject: a charm implementing a role of an
// interface. Immutable once loaded.
type Charm struct {
	Name      string     `yaml:"name"`
	URL       string     `yaml:"url"`
	Branch    string     `yaml:"branch"`
	TestSetup *TestSetup `yaml:"test_setup"`
}

// TestCase is an opaque descriptor of one interface test. The orchestrator
// only cares whether any exist for a role; their content belongs to the
// test harness.
type TestCase struct {
	Name string
}

// RoleTests is the test spec for one role of one interface version: the
// tests to run and the charms to run them against, both in registry order.
type RoleTests struct {
	Tests  []TestCase
	Charms []Charm
}

// VersionEntry is one version of an interface with its per-role test specs.
type VersionEntry struct {
	Version Version
	Roles   map[Role]RoleTests
}

// InterfaceEntry is one interface with its ordered versions. Title and
// Status come from the interface's README and are display-only.
type InterfaceEntry struct {
	Name     string
	Title    string
	Status   string
	Versions []VersionEntry
}

// Registry is the full ordered interface registry for one run.
type Registry struct {
	Interfaces []InterfaceEntry
}

// Filter returns a copy of the registry restricted to interfaces whose name
// matches the given glob pattern. "*" (or empty) keeps everything.
func (r *Registry) Filter(include string) (*Registry, error) {
	if include == "" {
		include = "*"
	}
	// Validate the pattern up front so a bad glob fails the run instead of
	// silently matching nothing.
	if _, err := path.Match(include, "probe"); err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", include, err)
	}

	out := &Registry{}
	for _, iface := range r.Interfaces {
		ok, _ := path.Match(include, iface.Name)
		if ok {
			out.Interfaces = append(out.Interfaces, iface)
		}
	}
	return out, nil
}
