package handlers

import (
	"context"
	"fmt"
)

// NodesOptions contains options for the nodes command.
type NodesOptions struct {
	ConfigPath string
	Log        LogOptions
}

// Nodes handles the nodes command. It lists the cluster's nodes with their
// readiness, roles and kubelet version. Only the kubeconfig is used.
func Nodes(ctx context.Context, opts NodesOptions) error {
	log := newLogger(opts.Log)

	cfg, err := loadConfig(opts.ConfigPath, "")
	if err != nil {
		return err
	}

	cluster, err := newCluster(cfg.Kubeconfig, log)
	if err != nil {
		return fmt.Errorf("failed to create cluster client: %w", err)
	}

	nodes, err := cluster.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	fmt.Fprint(stdout, renderer{styled: isInteractiveTTY()}.nodes("Nodes", nodes))
	return nil
}
