package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRegistryFile writes a file inside a registry tree, creating parents.
func writeRegistryFile(t *testing.T, root string, parts ...string) {
	t.Helper()
	content := parts[len(parts)-1]
	path := filepath.Join(append([]string{root}, parts[:len(parts)-1]...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const ingressCharms = `
providers:
  - name: traefik-k8s
    url: https://github.com/canonical/traefik-k8s-operator
requirers:
  - name: some-requirer
    url: https://github.com/example/some-requirer
    branch: staging
    test_setup:
      location: tests/interface/custom_conftest.py
      identifier: custom_tester
`

func TestCollect_FullTree(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v2", "charms.yaml", ingressCharms)
	writeRegistryFile(t, root, "interfaces", "ingress", "v2", "interface_tests", "test_provider.py", "# provider tests")
	writeRegistryFile(t, root, "interfaces", "ingress", "v2", "interface_tests", "test_requirer.py", "# requirer tests")
	writeRegistryFile(t, root, "interfaces", "ingress", "README.md", "# `ingress`\n\nStatus: maintained\n")

	reg, err := Collect(root, "*")
	require.NoError(t, err)
	require.Len(t, reg.Interfaces, 1)

	iface := reg.Interfaces[0]
	assert.Equal(t, "ingress", iface.Name)
	assert.Equal(t, "ingress", iface.Title)
	assert.Equal(t, "maintained", iface.Status)
	require.Len(t, iface.Versions, 1)

	ve := iface.Versions[0]
	assert.Equal(t, Version{Label: "v2", Number: 2}, ve.Version)

	provider := ve.Roles[RoleProvider]
	require.Len(t, provider.Charms, 1)
	assert.Equal(t, "traefik-k8s", provider.Charms[0].Name)
	assert.Nil(t, provider.Charms[0].TestSetup)
	require.Len(t, provider.Tests, 1)
	assert.Equal(t, "test_provider.py", provider.Tests[0].Name)

	requirer := ve.Roles[RoleRequirer]
	require.Len(t, requirer.Charms, 1)
	charm := requirer.Charms[0]
	assert.Equal(t, "some-requirer", charm.Name)
	assert.Equal(t, "staging", charm.Branch)
	require.NotNil(t, charm.TestSetup)
	assert.Equal(t, "tests/interface/custom_conftest.py", charm.TestSetup.Location)
	assert.Equal(t, "custom_tester", charm.TestSetup.Identifier)
}

func TestCollect_DeterministicOrdering(t *testing.T) {
	root := t.TempDir()
	for _, iface := range []string{"tracing", "ingress", "database"} {
		writeRegistryFile(t, root, "interfaces", iface, "v1", "charms.yaml", "providers: []\nrequirers: []\n")
	}
	// Versions out of numeric order on disk.
	writeRegistryFile(t, root, "interfaces", "ingress", "v10", "charms.yaml", "providers: []\nrequirers: []\n")
	writeRegistryFile(t, root, "interfaces", "ingress", "v2", "charms.yaml", "providers: []\nrequirers: []\n")

	reg, err := Collect(root, "*")
	require.NoError(t, err)

	var names []string
	for _, iface := range reg.Interfaces {
		names = append(names, iface.Name)
	}
	assert.Equal(t, []string{"database", "ingress", "tracing"}, names)

	var labels []string
	for _, iface := range reg.Interfaces {
		if iface.Name != "ingress" {
			continue
		}
		for _, ve := range iface.Versions {
			labels = append(labels, ve.Version.Label)
		}
	}
	assert.Equal(t, []string{"v1", "v2", "v10"}, labels)
}

func TestCollect_IncludeFilter(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v1", "charms.yaml", "providers: []\nrequirers: []\n")
	writeRegistryFile(t, root, "interfaces", "tracing", "v1", "charms.yaml", "providers: []\nrequirers: []\n")

	reg, err := Collect(root, "ing*")
	require.NoError(t, err)
	require.Len(t, reg.Interfaces, 1)
	assert.Equal(t, "ingress", reg.Interfaces[0].Name)
}

func TestCollect_MissingCharmsFileMeansNoCharms(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v1", "interface_tests", "test_provider.py", "# tests")

	reg, err := Collect(root, "*")
	require.NoError(t, err)
	require.Len(t, reg.Interfaces, 1)

	ve := reg.Interfaces[0].Versions[0]
	assert.Empty(t, ve.Roles[RoleProvider].Charms)
	assert.Len(t, ve.Roles[RoleProvider].Tests, 1)
	assert.Empty(t, ve.Roles[RoleRequirer].Charms)
	assert.Empty(t, ve.Roles[RoleRequirer].Tests)
}

func TestCollect_SkipsNonVersionDirs(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v1", "charms.yaml", "providers: []\nrequirers: []\n")
	writeRegistryFile(t, root, "interfaces", "ingress", "docs", "notes.md", "not a version")

	reg, err := Collect(root, "*")
	require.NoError(t, err)
	require.Len(t, reg.Interfaces, 1)
	assert.Len(t, reg.Interfaces[0].Versions, 1)
}

func TestCollect_MalformedCharmsYAML(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v1", "charms.yaml", "providers: [unterminated")

	_, err := Collect(root, "*")
	assert.Error(t, err)
}

func TestCollect_RejectsCharmWithoutURL(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "interfaces", "ingress", "v1", "charms.yaml", "providers:\n  - name: nameless\n")

	_, err := Collect(root, "*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nameless")
}

func TestCollect_MissingRegistryRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "nowhere"), "*")
	assert.Error(t, err)
}
