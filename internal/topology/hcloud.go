package topology

import (
	"context"
	"fmt"

	"github.com/imamik/kuberoll/internal/platform/hcloud"
)

// Server labels read during discovery.
const (
	LabelRole   = "role"
	LabelLeader = "kuberoll.io/leader"

	RoleValueControlPlane = "control-plane"
	RoleValueWorker       = "worker"
)

// HCloudSource discovers a topology from Hetzner Cloud servers carrying the
// cluster label. Servers labelled role=control-plane are control-plane nodes;
// the one labelled kuberoll.io/leader=true is the leader, otherwise the first
// by name. Servers labelled role=worker are workers. Others are skipped.
type HCloudSource struct {
	Servers      hcloud.ServerLister
	ClusterLabel string
	Cluster      string
}

// Discover lists the cluster's servers and builds the topology.
func (s *HCloudSource) Discover(ctx context.Context) (*Topology, error) {
	servers, err := s.Servers.ListServers(ctx, map[string]string{s.ClusterLabel: s.Cluster})
	if err != nil {
		return nil, err
	}

	var controlPlane, workers []Node
	leader := -1
	for _, srv := range servers {
		host := srv.Address()
		if host == "" {
			return nil, fmt.Errorf("server %s has no usable IP address", srv.Name)
		}
		n := Node{Host: host, Name: srv.Name}
		switch srv.Labels[LabelRole] {
		case RoleValueControlPlane:
			if srv.Labels[LabelLeader] == "true" {
				if leader >= 0 {
					return nil, fmt.Errorf("servers %s and %s are both labelled %s=true",
						controlPlane[leader].Name, srv.Name, LabelLeader)
				}
				leader = len(controlPlane)
			}
			controlPlane = append(controlPlane, n)
		case RoleValueWorker:
			n.Role = RoleWorker
			workers = append(workers, n)
		}
	}
	if len(controlPlane) == 0 {
		return nil, fmt.Errorf("no control-plane servers found with %s=%s: %w", s.ClusterLabel, s.Cluster, ErrNoLeader)
	}
	if leader < 0 {
		leader = 0
	}

	nodes := make([]Node, 0, len(controlPlane)+len(workers))
	for i, n := range controlPlane {
		n.Role = RoleFollower
		if i == leader {
			n.Role = RoleLeader
		}
		nodes = append(nodes, n)
	}
	nodes = append(nodes, workers...)
	return New(nodes)
}
