package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultWorkspaceRoot is the shared directory used for cloned charm sources.
const DefaultWorkspaceRoot = "/tmp/relation-interface-tests"

// DefaultMkvenvCmd creates the per-charm virtual environment. It is
// "python -m venv" on some platforms/python versions, so it stays overridable
// via config or the MKVENV_CMD environment variable.
const DefaultMkvenvCmd = "python -m virtualenv"

// Config represents relmatrix configuration options
type Config struct {
	// WorkspaceRoot is the shared directory for cloned charm sources.
	// Wiped and recreated at the start of every run.
	WorkspaceRoot string `yaml:"workspace_root"`

	// RegistryRoot is the directory containing the interfaces/ registry tree
	RegistryRoot string `yaml:"registry_root"`

	// MkvenvCmd is the command used to create a charm's virtual environment
	MkvenvCmd string `yaml:"mkvenv_cmd"`

	// MaxConcurrency is the number of charms tested concurrently within a
	// role (1 = fully sequential, matching the reference behavior)
	MaxConcurrency int `yaml:"max_concurrency"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// CloneTimeout bounds a single git clone (0 = no timeout)
	CloneTimeout time.Duration `yaml:"clone_timeout"`

	// InstallTimeout bounds each environment install step (0 = no timeout)
	InstallTimeout time.Duration `yaml:"install_timeout"`

	// TestTimeout bounds a single pytest invocation (0 = no timeout)
	TestTimeout time.Duration `yaml:"test_timeout"`

	// HistoryEnabled records each run's leaves in the history database
	HistoryEnabled bool `yaml:"history_enabled"`

	// HistoryDB is the path to the run history database
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	mkvenv := DefaultMkvenvCmd
	if env := os.Getenv("MKVENV_CMD"); env != "" {
		mkvenv = env
	}

	return &Config{
		WorkspaceRoot:  DefaultWorkspaceRoot,
		RegistryRoot:   ".",
		MkvenvCmd:      mkvenv,
		MaxConcurrency: 1,
		LogLevel:       "info",
		CloneTimeout:   0,
		InstallTimeout: 0,
		TestTimeout:    0,
		HistoryEnabled: true,
		HistoryDB:      ".relmatrix/history.db",
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations come in as strings ("30s", "5m"), so parse through a
	// temporary struct before merging non-zero values over the defaults.
	type yamlConfig struct {
		WorkspaceRoot  string `yaml:"workspace_root"`
		RegistryRoot   string `yaml:"registry_root"`
		MkvenvCmd      string `yaml:"mkvenv_cmd"`
		MaxConcurrency int    `yaml:"max_concurrency"`
		LogLevel       string `yaml:"log_level"`
		CloneTimeout   string `yaml:"clone_timeout"`
		InstallTimeout string `yaml:"install_timeout"`
		TestTimeout    string `yaml:"test_timeout"`
		HistoryEnabled *bool  `yaml:"history_enabled"`
		HistoryDB      string `yaml:"history_db"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.WorkspaceRoot != "" {
		cfg.WorkspaceRoot = yamlCfg.WorkspaceRoot
	}
	if yamlCfg.RegistryRoot != "" {
		cfg.RegistryRoot = yamlCfg.RegistryRoot
	}
	if yamlCfg.MkvenvCmd != "" {
		cfg.MkvenvCmd = yamlCfg.MkvenvCmd
	}
	if yamlCfg.MaxConcurrency != 0 {
		cfg.MaxConcurrency = yamlCfg.MaxConcurrency
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.CloneTimeout != "" {
		d, err := time.ParseDuration(yamlCfg.CloneTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid clone_timeout %q: %w", yamlCfg.CloneTimeout, err)
		}
		cfg.CloneTimeout = d
	}
	if yamlCfg.InstallTimeout != "" {
		d, err := time.ParseDuration(yamlCfg.InstallTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid install_timeout %q: %w", yamlCfg.InstallTimeout, err)
		}
		cfg.InstallTimeout = d
	}
	if yamlCfg.TestTimeout != "" {
		d, err := time.ParseDuration(yamlCfg.TestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid test_timeout %q: %w", yamlCfg.TestTimeout, err)
		}
		cfg.TestTimeout = d
	}
	if yamlCfg.HistoryEnabled != nil {
		cfg.HistoryEnabled = *yamlCfg.HistoryEnabled
	}
	if yamlCfg.HistoryDB != "" {
		cfg.HistoryDB = yamlCfg.HistoryDB
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration values for consistency
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace_root must not be empty")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.CloneTimeout < 0 || c.InstallTimeout < 0 || c.TestTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
