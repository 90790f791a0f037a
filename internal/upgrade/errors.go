package upgrade

import (
	"fmt"
	"time"
)

// PreconditionError is returned before any node is touched, e.g. for a
// topology without exactly one leader.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed: %s: %v", e.Reason, e.Err)
	}
	return "precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// VersionResolutionError is returned when no target version can be determined.
type VersionResolutionError struct {
	Host   string
	Reason string
	Err    error
}

func (e *VersionResolutionError) Error() string {
	msg := fmt.Sprintf("version resolution on %s failed: %s", e.Host, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VersionResolutionError) Unwrap() error { return e.Err }

// VersionParseError is returned when a version string holds no major.minor.patch triple.
type VersionParseError struct {
	Input string
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("cannot extract major.minor.patch from version %q", e.Input)
}

// RepositoryError is returned when a host's repository channel cannot be rewritten.
type RepositoryError struct {
	Host    string
	Channel string
	Err     error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("failed to switch repository on %s to %s: %v", e.Host, e.Channel, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// DrainError is returned when a node cannot be cordoned or drained.
type DrainError struct {
	Node string
	Err  error
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("failed to drain node %s: %v", e.Node, e.Err)
}

func (e *DrainError) Unwrap() error { return e.Err }

// SoftwareUpgradeError names the host and the step that failed.
type SoftwareUpgradeError struct {
	Host string
	Step Step
	Err  error
}

func (e *SoftwareUpgradeError) Error() string {
	return fmt.Sprintf("software upgrade on %s failed at step %s: %v", e.Host, e.Step, e.Err)
}

func (e *SoftwareUpgradeError) Unwrap() error { return e.Err }

// UncordonError is returned when a node cannot be marked schedulable.
type UncordonError struct {
	Node string
	Err  error
}

func (e *UncordonError) Error() string {
	return fmt.Sprintf("failed to uncordon node %s: %v", e.Node, e.Err)
}

func (e *UncordonError) Unwrap() error { return e.Err }

// WaitReadyError is returned when a node does not report Ready in time or
// the wait is cancelled.
type WaitReadyError struct {
	Node    string
	Timeout time.Duration
	Err     error
}

func (e *WaitReadyError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("node %s did not become Ready within %s: %v", e.Node, e.Timeout, e.Err)
	}
	return fmt.Sprintf("waiting for node %s to become Ready: %v", e.Node, e.Err)
}

func (e *WaitReadyError) Unwrap() error { return e.Err }
