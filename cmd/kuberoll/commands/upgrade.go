package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kuberoll/cmd/kuberoll/handlers"
)

// Upgrade returns the command that upgrades the cluster by one minor version.
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: ./kuberoll.yaml)
//	--inventory: Text inventory file, overrides the configured inventory
//	--dry-run: Resolve the target version and print the plan only
//
// Environment variables:
//
//	HCLOUD_TOKEN: Hetzner Cloud API token (hcloud inventory only)
func Upgrade() *cobra.Command {
	var configPath string
	var inventory string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the cluster to the next minor version",
		Long: `Upgrade a kubeadm cluster to the next Kubernetes minor version.

The upgrade process:
1. Resolves the newest patch release of the next minor on the leader
2. Upgrades the control-plane leader (kubeadm upgrade apply)
3. Upgrades the other control-plane nodes, then the workers (kubeadm upgrade node)

Each node is drained, upgraded, uncordoned and waited on until Ready before
the next one starts. The first failure stops the run.

Use --dry-run to see the plan without upgrading any node.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.UpgradeOptions{
				ConfigPath: configPath,
				Inventory:  inventory,
				DryRun:     dryRun,
				Log:        logOpts,
			}
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&inventory, "inventory", "", "Path to a text inventory file (overrides the configured inventory)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be upgraded without executing")

	return cmd
}
