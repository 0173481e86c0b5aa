package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("MKVENV_CMD", "")

	cfg := DefaultConfig()

	assert.Equal(t, DefaultWorkspaceRoot, cfg.WorkspaceRoot)
	assert.Equal(t, ".", cfg.RegistryRoot)
	assert.Equal(t, DefaultMkvenvCmd, cfg.MkvenvCmd)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.CloneTimeout)
	assert.Zero(t, cfg.InstallTimeout)
	assert.Zero(t, cfg.TestTimeout)
	assert.True(t, cfg.HistoryEnabled)
}

func TestDefaultConfig_MkvenvEnvOverride(t *testing.T) {
	t.Setenv("MKVENV_CMD", "python -m venv")

	cfg := DefaultConfig()
	assert.Equal(t, "python -m venv", cfg.MkvenvCmd)
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workspace_root: /var/tmp/matrix
max_concurrency: 4
clone_timeout: 90s
test_timeout: 10m
history_enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/tmp/matrix", cfg.WorkspaceRoot)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 90*time.Second, cfg.CloneTimeout)
	assert.Equal(t, 10*time.Minute, cfg.TestTimeout)
	assert.False(t, cfg.HistoryEnabled)

	// Untouched fields keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ".", cfg.RegistryRoot)
	assert.Zero(t, cfg.InstallTimeout)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace_root: [unterminated"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clone_timeout: ninety"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clone_timeout")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty workspace", func(c *Config) { c.WorkspaceRoot = "" }, "workspace_root"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, "max_concurrency"},
		{"negative timeout", func(c *Config) { c.TestTimeout = -time.Second }, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
