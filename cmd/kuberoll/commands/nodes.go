package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kuberoll/cmd/kuberoll/handlers"
)

// Nodes returns the command that lists the cluster's nodes.
func Nodes() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List cluster nodes with readiness and kubelet version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Nodes(cmd.Context(), handlers.NodesOptions{
				ConfigPath: configPath,
				Log:        logOpts,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
