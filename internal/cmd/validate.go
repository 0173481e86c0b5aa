package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/relmatrix/internal/registry"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var registryRoot string
	var include string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the interface registry without running any tests",
		Long: `Validate parses the interface registry and reports what a run would
cover: interfaces, versions, and registered charms per role. Nothing is
cloned and no tests execute, so this is safe to run anywhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Collect(registryRoot, include)
			if err != nil {
				return fmt.Errorf("registry is invalid: %w", err)
			}

			out := cmd.OutOrStdout()
			var units int
			for _, iface := range reg.Interfaces {
				name := iface.Name
				if iface.Status != "" {
					name += " (" + iface.Status + ")"
				}
				fmt.Fprintf(out, "%s\n", name)

				for _, ve := range iface.Versions {
					fmt.Fprintf(out, "  %s\n", ve.Version.Label)
					for _, role := range registry.RoleOrder {
						spec := ve.Roles[role]
						fmt.Fprintf(out, "    %s: %d test(s), %d charm(s)\n",
							role, len(spec.Tests), len(spec.Charms))
						if len(spec.Tests) > 0 {
							units += len(spec.Charms)
						}
					}
				}
			}

			fmt.Fprintf(out, "\n%d interface(s), %d testable unit(s)\n", len(reg.Interfaces), units)
			return nil
		},
	}

	cmd.Flags().StringVar(&registryRoot, "registry", ".", "Directory containing the interfaces/ registry tree")
	cmd.Flags().StringVar(&include, "include", "*", "Glob to filter which interfaces to include")

	return cmd
}
