package upgrade

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/kuberoll/internal/topology"
)

// Resolver computes the UpgradePlan of a run on the leader.
type Resolver struct {
	cluster Cluster
	host    Host
	tool    string
	log     logr.Logger
}

// NewResolver creates a Resolver that lists versions of the tool package.
func NewResolver(cluster Cluster, host Host, tool string, log logr.Logger) *Resolver {
	return &Resolver{cluster: cluster, host: host, tool: tool, log: log.WithName("resolver")}
}

// ResolveUpgradePlan targets the minor after the control plane's current
// one. It points the leader's repository at that minor's channel, refreshes
// the index and picks the greatest available tool version in the minor.
//
// The repository rewrite is the only mutation; nothing is installed when no
// candidate is found.
func (r *Resolver) ResolveUpgradePlan(ctx context.Context, leader topology.Node) (*UpgradePlan, error) {
	log := r.log.WithValues("host", leader.Host)

	raw, err := r.cluster.ServerVersion(ctx)
	if err != nil {
		return nil, &VersionResolutionError{Host: leader.Host, Reason: "cannot read server version", Err: err}
	}
	current, err := ParseClusterVersion(raw)
	if err != nil {
		return nil, err
	}

	plan := &UpgradePlan{
		ServerVersion: raw,
		From:          current,
		TargetMajor:   current.Major,
		TargetMinor:   current.Minor + 1,
	}
	channel := plan.Channel()
	log.Info("resolving target version", "current", current.String(), "channel", channel)

	if err := r.host.RewriteRepository(ctx, leader.Host, channel); err != nil {
		return nil, &VersionResolutionError{
			Host:   leader.Host,
			Reason: "cannot switch repository",
			Err:    &RepositoryError{Host: leader.Host, Channel: channel, Err: err},
		}
	}
	if err := r.host.RefreshIndex(ctx, leader.Host); err != nil {
		return nil, &VersionResolutionError{Host: leader.Host, Reason: "cannot refresh package index", Err: err}
	}

	candidates, err := r.host.ListAvailableVersions(ctx, leader.Host, r.tool)
	if err != nil {
		return nil, &VersionResolutionError{Host: leader.Host, Reason: "cannot list available versions", Err: err}
	}
	log.V(1).Info("available versions", "package", r.tool, "versions", candidates)

	full, ok := SelectLatest(candidates, plan.TargetMajor, plan.TargetMinor)
	if !ok {
		return nil, &VersionResolutionError{
			Host:   leader.Host,
			Reason: fmt.Sprintf("no %s version available for %d.%d", r.tool, plan.TargetMajor, plan.TargetMinor),
		}
	}
	short, err := ShortVersion(full)
	if err != nil {
		return nil, err
	}

	plan.TargetFullVersion = full
	plan.TargetShortVersion = short
	log.Info("resolved upgrade plan", "from", current.String(), "target", full, "short", short)
	return plan, nil
}
