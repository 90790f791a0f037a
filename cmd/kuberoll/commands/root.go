// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kuberoll/cmd/kuberoll/handlers"
)

// logOpts is bound to the persistent logging flags of the root command.
var logOpts handlers.LogOptions

// Root returns the root command for the kuberoll CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kuberoll",
		Short:         "Upgrade a kubeadm cluster by one minor version, node by node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&logOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&logOpts.JSON, "log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(Upgrade())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Nodes())
	cmd.AddCommand(Version())

	return cmd
}
