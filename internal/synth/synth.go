// Package synth generates the ephemeral pytest file that exercises one
// interface version against one charm. The file is written into the charm's
// own test directory so the host test framework can discover and run it; it
// is data produced here, never executed here.
package synth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/template"
)

// The generated test declares one function named after the interface,
// requests the charm's tester fixture by identifier, configures it with the
// interface name and version, and runs it.
const testTemplate = `# file generated by relmatrix; do not edit
from interface_tester import InterfaceTester


def test_{{.Interface}}_interface({{.FixtureID}}: InterfaceTester):
    {{.FixtureID}}.configure(
        interface_name="{{.Interface}}",
        interface_version={{.Version}},
    )
    {{.FixtureID}}.run()
`

var (
	tmpl = template.Must(template.New("interface-test").Parse(testTemplate))

	// Interface names are substituted into a Python function name, so they
	// must be identifier-shaped.
	interfacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	// Fixture identifiers become a Python parameter name.
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// fields are the named substitutions for the test template, validated
// before rendering.
type fields struct {
	Interface string
	Version   int
	FixtureID string
}

// validate rejects substitutions that would render a syntactically broken
// or misleading test file.
func (f fields) validate() error {
	if !interfacePattern.MatchString(f.Interface) {
		return fmt.Errorf("interface name %q is not usable in a test name (want lowercase letters, digits, underscores)", f.Interface)
	}
	if !identifierPattern.MatchString(f.FixtureID) {
		return fmt.Errorf("fixture identifier %q is not a valid python identifier", f.FixtureID)
	}
	if f.Version < 0 {
		return fmt.Errorf("interface version must not be negative, got %d", f.Version)
	}
	return nil
}

// ArtifactName returns the file name of the generated test for an interface.
func ArtifactName(iface string) string {
	return fmt.Sprintf("interface-test-%s.py", iface)
}

// Generate renders the conformance test for (iface, version) against the
// fixture identified by fixtureID and writes it into destDir, overwriting
// any prior artifact of the same name. Returns the artifact path.
func Generate(iface string, version int, fixtureID, destDir string) (string, error) {
	f := fields{Interface: iface, Version: version, FixtureID: fixtureID}
	if err := f.validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, f); err != nil {
		return "", fmt.Errorf("failed to render test for %s: %w", iface, err)
	}

	path := filepath.Join(destDir, ArtifactName(iface))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write test file %s: %w", path, err)
	}
	return path, nil
}
