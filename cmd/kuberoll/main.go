// Package main is the entry point for the kuberoll CLI.
//
// kuberoll upgrades a kubeadm-managed Kubernetes cluster by one minor
// version, one node at a time: the first control-plane node, the other
// control-plane nodes, then the workers.
//
//	kuberoll plan -c kuberoll.yaml
//	kuberoll upgrade -c kuberoll.yaml
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/kuberoll/cmd/kuberoll/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
