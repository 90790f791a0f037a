// Package upgrade performs a one-minor-version rolling upgrade of a
// kubeadm-managed cluster.
//
// The Sequencer resolves an UpgradePlan once, on the control-plane leader,
// and then runs every node through the same state machine, strictly one
// node at a time:
//
//	Pending -> Drained -> SoftwareUpgraded -> Uncordoned -> Ready
//
// Nodes are visited leader first, then the remaining control-plane nodes,
// then workers. The first failure aborts the run; nothing is rolled back.
//
// # Collaborators
//
// The package talks to the cluster through Cluster (implemented by
// kube.Client) and to hosts through Host (implemented by hostops.Ops).
// Progress is reported to an Observer; Metrics is an Observer that turns
// the same events into Prometheus series.
package upgrade
