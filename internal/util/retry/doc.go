// Package retry provides exponential backoff for operations that fail
// transiently, such as dialing a host that is still rebooting.
//
// Upgrade steps are never retried through this package: a failed drain or
// package install aborts the run.
package retry
