// Package topology models the nodes of a cluster and the order in which
// they are upgraded: the control-plane leader, then the remaining
// control-plane nodes, then the workers.
//
// A Topology is built from a text inventory file or discovered from
// Hetzner Cloud server labels.
package topology
