package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kuberoll/cmd/kuberoll/handlers"
)

// Plan returns the command that resolves and prints the upgrade plan.
func Plan() *cobra.Command {
	var configPath string
	var inventory string
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve the target version and show the upgrade plan",
		Long: `Resolve the target version on the control-plane leader and print it with
the steps every node would go through.

Resolution points the leader's package repository at the next minor channel
and refreshes its package index. No node is drained or upgraded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.PlanOptions{
				ConfigPath: configPath,
				Inventory:  inventory,
				Output:     output,
				Log:        logOpts,
			}
			return handlers.Plan(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&inventory, "inventory", "", "Path to a text inventory file (overrides the configured inventory)")
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputText, "Output format: text, yaml or json")

	return cmd
}
