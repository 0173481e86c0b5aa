package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/relmatrix/internal/registry"
)

// writeFixtureFile creates a fixture file at the given relative location
// inside sourceDir.
func writeFixtureFile(t *testing.T, sourceDir, location string) {
	t.Helper()
	path := filepath.Join(sourceDir, location)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("# conftest"), 0644))
}

func TestResolveFixture_OverridePrecedence(t *testing.T) {
	tests := []struct {
		name           string
		setup          *registry.TestSetup
		location       string // where the fixture file actually is
		wantIdentifier string
	}{
		{
			name:           "no overrides",
			setup:          nil,
			location:       DefaultFixtureLocation,
			wantIdentifier: DefaultFixtureIdentifier,
		},
		{
			name:           "location override only keeps default identifier",
			setup:          &registry.TestSetup{Location: "tests/custom/conftest.py"},
			location:       "tests/custom/conftest.py",
			wantIdentifier: DefaultFixtureIdentifier,
		},
		{
			name:           "identifier override only keeps default location",
			setup:          &registry.TestSetup{Identifier: "my_tester"},
			location:       DefaultFixtureLocation,
			wantIdentifier: "my_tester",
		},
		{
			name: "both overridden",
			setup: &registry.TestSetup{
				Location:   "tests/custom/conftest.py",
				Identifier: "my_tester",
			},
			location:       "tests/custom/conftest.py",
			wantIdentifier: "my_tester",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sourceDir := t.TempDir()
			writeFixtureFile(t, sourceDir, tt.location)

			charm := registry.Charm{Name: "traefik-k8s", URL: "u", TestSetup: tt.setup}
			spec, err := ResolveFixture(charm, sourceDir)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(sourceDir, tt.location), spec.Path)
			assert.Equal(t, tt.wantIdentifier, spec.Identifier)
		})
	}
}

func TestResolveFixture_MissingFile(t *testing.T) {
	charm := registry.Charm{Name: "traefik-k8s", URL: "u"}

	_, err := ResolveFixture(charm, t.TempDir())
	require.Error(t, err)
	assert.True(t, IsSetupError(err))
	assert.Contains(t, err.Error(), "traefik-k8s")
	assert.Contains(t, err.Error(), "fixture")
}

func TestResolveFixture_DirectoryNotAccepted(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, DefaultFixtureLocation), 0755))

	charm := registry.Charm{Name: "traefik-k8s", URL: "u"}
	_, err := ResolveFixture(charm, sourceDir)
	require.Error(t, err)
	assert.True(t, IsSetupError(err))
}

func TestSetupError_Unwrap(t *testing.T) {
	underlying := os.ErrNotExist
	err := &SetupError{Charm: "c", Stage: "fixture", Err: underlying}

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, IsSetupError(err))
	assert.False(t, IsSetupError(nil))
	assert.False(t, IsSetupError(os.ErrNotExist))
}
