// Package kube is the cluster control API used during an upgrade: server
// version, cordon and drain, uncordon, and node readiness.
package kube
