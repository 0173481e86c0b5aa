package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for relmatrix
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relmatrix",
		Short: "Interface conformance test matrix runner",
		Long: `Relmatrix runs the conformance test matrix for charm relation interfaces.

For every interface version and role in the registry, it clones each
registered charm, builds an isolated test environment, generates a
conformance test against the charm's tester fixture, and runs it with
pytest. Results are aggregated into a nested pass/fail report.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
