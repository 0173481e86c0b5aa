package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// charmsFile is the per-version registry file listing participant charms.
const charmsFile = "charms.yaml"

// testsDir holds the interface test modules for a version. Files named
// test_provider*.py belong to the provider role, test_requirer*.py to the
// requirer role.
const testsDir = "interface_tests"

// charmsYAML is the on-disk shape of charms.yaml.
type charmsYAML struct {
	Providers []Charm `yaml:"providers"`
	Requirers []Charm `yaml:"requirers"`
}

// Collect walks the registry tree rooted at root and builds the typed
// registry. The expected layout is:
//
//	<root>/interfaces/<name>/<vN>/charms.yaml
//	<root>/interfaces/<name>/<vN>/interface_tests/test_*.py
//	<root>/interfaces/<name>/README.md  (optional, display metadata)
//
// Interfaces and versions are returned in sorted order so traversal is
// deterministic regardless of filesystem iteration order. The include
// pattern restricts which interfaces are collected (default "*").
func Collect(root, include string) (*Registry, error) {
	interfacesDir := filepath.Join(root, "interfaces")
	entries, err := os.ReadDir(interfacesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry root %s: %w", interfacesDir, err)
	}

	reg := &Registry{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		iface, err := collectInterface(filepath.Join(interfacesDir, entry.Name()), entry.Name())
		if err != nil {
			return nil, err
		}
		if len(iface.Versions) == 0 {
			// Directory without any version subdirectories; nothing to run.
			continue
		}
		reg.Interfaces = append(reg.Interfaces, *iface)
	}

	sort.Slice(reg.Interfaces, func(i, j int) bool {
		return reg.Interfaces[i].Name < reg.Interfaces[j].Name
	})

	return reg.Filter(include)
}

// collectInterface reads one interface directory: its README metadata and
// every version subdirectory.
func collectInterface(dir, name string) (*InterfaceEntry, error) {
	iface := &InterfaceEntry{Name: name}

	if meta, err := ReadInterfaceMeta(filepath.Join(dir, "README.md")); err == nil {
		iface.Title = meta.Title
		iface.Status = meta.Status
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read interface dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		version, err := ParseVersionLabel(entry.Name())
		if err != nil {
			// Not a version directory (docs, schemas, ...); skip it.
			continue
		}

		ve, err := collectVersion(filepath.Join(dir, entry.Name()), version)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", name, err)
		}
		iface.Versions = append(iface.Versions, *ve)
	}

	sort.Slice(iface.Versions, func(i, j int) bool {
		return iface.Versions[i].Version.Number < iface.Versions[j].Version.Number
	})

	return iface, nil
}

// collectVersion reads one version directory: charms.yaml plus the role
// split of the interface test modules.
func collectVersion(dir string, version Version) (*VersionEntry, error) {
	ve := &VersionEntry{
		Version: version,
		Roles: map[Role]RoleTests{
			RoleProvider: {},
			RoleRequirer: {},
		},
	}

	charmsPath := filepath.Join(dir, charmsFile)
	if data, err := os.ReadFile(charmsPath); err == nil {
		var cy charmsYAML
		if err := yaml.Unmarshal(data, &cy); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", charmsPath, err)
		}
		if err := validateCharms(cy.Providers); err != nil {
			return nil, fmt.Errorf("%s providers: %w", charmsPath, err)
		}
		if err := validateCharms(cy.Requirers); err != nil {
			return nil, fmt.Errorf("%s requirers: %w", charmsPath, err)
		}
		ve.Roles[RoleProvider] = RoleTests{Charms: cy.Providers}
		ve.Roles[RoleRequirer] = RoleTests{Charms: cy.Requirers}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", charmsPath, err)
	}

	provTests, reqTests, err := collectTestCases(filepath.Join(dir, testsDir))
	if err != nil {
		return nil, err
	}

	rt := ve.Roles[RoleProvider]
	rt.Tests = provTests
	ve.Roles[RoleProvider] = rt

	rt = ve.Roles[RoleRequirer]
	rt.Tests = reqTests
	ve.Roles[RoleRequirer] = rt

	return ve, nil
}

// collectTestCases splits the interface test modules by role based on file
// naming. The descriptors stay opaque; the matrix only needs to know that
// a role has at least one test.
func collectTestCases(dir string) (provider, requirer []TestCase, err error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tests dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".py") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		switch {
		case strings.HasPrefix(name, "test_provider"):
			provider = append(provider, TestCase{Name: name})
		case strings.HasPrefix(name, "test_requirer"):
			requirer = append(requirer, TestCase{Name: name})
		}
	}
	return provider, requirer, nil
}

// validateCharms rejects charm entries the provisioner could not act on.
func validateCharms(charms []Charm) error {
	for _, c := range charms {
		if c.Name == "" {
			return fmt.Errorf("charm entry with empty name")
		}
		if c.URL == "" {
			return fmt.Errorf("charm %s has no url", c.Name)
		}
	}
	return nil
}
