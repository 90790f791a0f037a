// Package hostops runs the discrete remote operations of a node upgrade.
//
// Each method maps to one command on one host: rewriting the package
// repository channel, refreshing the index, listing versions, holding and
// unholding packages, installing pinned versions, running kubeadm and
// restarting services. A command that exits non-zero is returned as a
// *CommandError carrying the host, the operation name and the output.
package hostops
