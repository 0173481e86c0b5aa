package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/relmatrix/internal/config"
	"github.com/harrison/relmatrix/internal/history"
	"github.com/harrison/relmatrix/internal/logger"
	"github.com/harrison/relmatrix/internal/matrix"
	"github.com/harrison/relmatrix/internal/provision"
	"github.com/harrison/relmatrix/internal/registry"
	"github.com/harrison/relmatrix/internal/report"
	"github.com/harrison/relmatrix/internal/workspace"
)

// defaultConfigPath is where run looks for configuration unless --config
// points elsewhere.
const defaultConfigPath = ".relmatrix.yaml"

// runOptions holds the CLI flags for the run command.
type runOptions struct {
	configPath    string
	include       string
	registryRoot  string
	workspaceRoot string
	logLevel      string
	concurrency   int
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interface conformance test matrix",
		Long: `Run the conformance test matrix over the interface registry.

The registry is collected from <registry>/interfaces/<name>/<vN>/, each
version listing its participant charms in charms.yaml. Every registered
charm is cloned into the shared workspace (wiped at run start), given an
isolated virtual environment, and exercised with a generated pytest file.

The final report is printed to standard output as indented JSON after a
"+++ Results +++" header. Unlike earlier revisions of this tooling, the
command exits non-zero if any unit failed.

Configuration is loaded from .relmatrix.yaml if present. CLI flags
override configuration file settings.

Examples:
  # Run the full matrix
  relmatrix run

  # Only interfaces matching a glob
  relmatrix run --include 'ingress*'

  # Four charms in parallel within each role
  relmatrix run --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the configuration file")
	cmd.Flags().StringVar(&opts.include, "include", "*", "Glob to filter which interfaces to include in the test matrix")
	cmd.Flags().StringVar(&opts.registryRoot, "registry", "", "Directory containing the interfaces/ registry tree")
	cmd.Flags().StringVar(&opts.workspaceRoot, "workspace", "", "Shared directory for cloned charm sources")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Charms tested concurrently within a role (1 = sequential)")

	return cmd
}

// runMatrix wires the collaborators and drives one full matrix run.
func runMatrix(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Progress goes to stderr; stdout carries only the report.
	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	reg, err := registry.Collect(cfg.RegistryRoot, opts.include)
	if err != nil {
		return fmt.Errorf("failed to collect registry: %w", err)
	}

	ws := workspace.New(cfg.WorkspaceRoot)
	if err := ws.Acquire(); err != nil {
		return err
	}
	defer ws.Release()

	runner := provision.NewShellCommandRunner()
	prov := provision.NewProvisioner(ws, runner, log, cfg.MkvenvCmd)
	prov.CloneTimeout = cfg.CloneTimeout
	prov.InstallTimeout = cfg.InstallTimeout

	exec := matrix.NewExecutor(runner, log)
	exec.TestTimeout = cfg.TestTimeout

	orch := matrix.NewOrchestrator(ws, prov, exec, log)
	orch.MaxConcurrency = cfg.MaxConcurrency

	started := time.Now()
	tree, err := orch.Run(cmd.Context(), reg)
	if err != nil {
		return err
	}
	finished := time.Now()

	if err := report.Print(cmd.OutOrStdout(), tree); err != nil {
		return err
	}
	report.Summary(cmd.OutOrStdout(), tree)

	if cfg.HistoryEnabled {
		recordHistory(log, cfg.HistoryDB, started, finished, tree)
	}

	if !tree.AllPassed() {
		return fmt.Errorf("%d of %d unit(s) failed", len(tree.Failures()), tree.LeafCount())
	}
	return nil
}

// applyFlagOverrides layers non-empty CLI flags over the loaded config.
func applyFlagOverrides(cfg *config.Config, opts *runOptions) {
	if opts.registryRoot != "" {
		cfg.RegistryRoot = opts.registryRoot
	}
	if opts.workspaceRoot != "" {
		cfg.WorkspaceRoot = opts.workspaceRoot
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.concurrency > 0 {
		cfg.MaxConcurrency = opts.concurrency
	}
}

// recordHistory stores the run in the history database. History is an
// after-the-fact convenience, so failures here only warn.
func recordHistory(log *logger.ConsoleLogger, dbPath string, started, finished time.Time, tree *matrix.ResultTree) {
	store, err := history.NewStore(dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("history disabled: %v", err))
		return
	}
	defer store.Close()

	runID, err := store.RecordRun(started, finished, tree)
	if err != nil {
		log.LogWarn(fmt.Sprintf("failed to record run history: %v", err))
		return
	}
	log.LogDebug("recorded run " + runID)
}
