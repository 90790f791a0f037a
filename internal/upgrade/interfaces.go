package upgrade

import (
	"context"

	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/kube"
)

// Cluster is the cluster control API. *kube.Client implements it.
type Cluster interface {
	ServerVersion(ctx context.Context) (string, error)
	Drain(ctx context.Context, name string, opts kube.DrainOptions) error
	Uncordon(ctx context.Context, name string) error
	NodeReady(ctx context.Context, name string) (bool, error)
	ListNodes(ctx context.Context) ([]kube.NodeInfo, error)
}

// Host runs package and service operations on a node. *hostops.Ops implements it.
type Host interface {
	RewriteRepository(ctx context.Context, host, channel string) error
	RefreshIndex(ctx context.Context, host string) error
	ListAvailableVersions(ctx context.Context, host, pkg string) ([]string, error)
	Unhold(ctx context.Context, host string, pkgs ...string) error
	Hold(ctx context.Context, host string, pkgs ...string) error
	Install(ctx context.Context, host string, pkgs ...hostops.Package) error
	UpgradeApply(ctx context.Context, host, version string, etcdUpgrade bool) error
	UpgradeNode(ctx context.Context, host string) error
	DaemonReload(ctx context.Context, host string) error
	RestartService(ctx context.Context, host, service string) error
}

var (
	_ Cluster = (*kube.Client)(nil)
	_ Host    = (*hostops.Ops)(nil)
)
