package topology

import (
	"errors"
	"fmt"
)

// Role is the part a node plays in the upgrade.
type Role string

const (
	// RoleLeader is the control-plane node that runs `kubeadm upgrade apply`.
	RoleLeader Role = "leader"
	// RoleFollower is any other control-plane node.
	RoleFollower Role = "follower"
	// RoleWorker is a node without control-plane components.
	RoleWorker Role = "worker"
)

// Node is one machine in the cluster. Host is the SSH address, Name the
// Kubernetes node name. They may differ.
type Node struct {
	Role Role
	Host string
	Name string
}

// IsLeader reports whether n is the control-plane leader.
func (n Node) IsLeader() bool {
	return n.Role == RoleLeader
}

func (n Node) String() string {
	if n.Name == n.Host {
		return n.Name
	}
	return fmt.Sprintf("%s (%s)", n.Name, n.Host)
}

// ErrNoLeader is returned when a topology has no leader.
var ErrNoLeader = errors.New("topology has no leader")

// Topology is the validated set of nodes of a cluster.
type Topology struct {
	Leader    Node
	Followers []Node
	Workers   []Node
}

// New groups nodes by role, keeping their relative order, and validates the result.
// A node without a name is named after its host.
func New(nodes []Node) (*Topology, error) {
	t := &Topology{}
	leaders := 0
	for _, n := range nodes {
		if n.Name == "" {
			n.Name = n.Host
		}
		switch n.Role {
		case RoleLeader:
			leaders++
			t.Leader = n
		case RoleFollower:
			t.Followers = append(t.Followers, n)
		case RoleWorker:
			t.Workers = append(t.Workers, n)
		default:
			return nil, fmt.Errorf("node %s: unknown role %q", n.Host, n.Role)
		}
	}
	if leaders > 1 {
		return nil, fmt.Errorf("topology has %d leaders, exactly one is required", leaders)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that there is exactly one leader and that no host or
// node name appears twice.
func (t *Topology) Validate() error {
	if t.Leader.Host == "" {
		return ErrNoLeader
	}
	if t.Leader.Role != RoleLeader {
		return fmt.Errorf("leader %s has role %q", t.Leader.Host, t.Leader.Role)
	}

	hosts := make(map[string]bool)
	names := make(map[string]bool)
	for _, n := range t.Ordered() {
		if n.Host == "" {
			return fmt.Errorf("node %q has no host", n.Name)
		}
		if hosts[n.Host] {
			return fmt.Errorf("duplicate host %s", n.Host)
		}
		if names[n.Name] {
			return fmt.Errorf("duplicate node name %s", n.Name)
		}
		hosts[n.Host] = true
		names[n.Name] = true
	}
	for _, n := range t.Followers {
		if n.Role != RoleFollower {
			return fmt.Errorf("follower %s has role %q", n.Host, n.Role)
		}
	}
	for _, n := range t.Workers {
		if n.Role != RoleWorker {
			return fmt.Errorf("worker %s has role %q", n.Host, n.Role)
		}
	}
	return nil
}

// Ordered returns the nodes in upgrade order: leader, followers, workers.
func (t *Topology) Ordered() []Node {
	out := make([]Node, 0, t.Len())
	out = append(out, t.Leader)
	out = append(out, t.Followers...)
	out = append(out, t.Workers...)
	return out
}

// Len returns the number of nodes.
func (t *Topology) Len() int {
	return 1 + len(t.Followers) + len(t.Workers)
}
