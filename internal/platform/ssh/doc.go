// Package ssh implements the remote execution backend: run one command on
// one host and report its stdout, stderr and exit status.
//
// Connections are opened per command with key-based authentication and
// retried with exponential backoff, which covers hosts that are briefly
// unreachable after a kubelet or runtime restart. Host keys are verified
// against a known_hosts file when one is configured.
package ssh
