package hostops

import (
	"fmt"
	"strings"
)

// Operation names used in CommandError.Op.
const (
	OpRewriteRepository = "rewrite-repository"
	OpVerifyRepository  = "verify-repository"
	OpRefreshIndex      = "refresh-index"
	OpListVersions      = "list-versions"
	OpUnhold            = "unhold-packages"
	OpHold              = "hold-packages"
	OpInstall           = "install-packages"
	OpUpgradeApply      = "kubeadm-upgrade-apply"
	OpUpgradeNode       = "kubeadm-upgrade-node"
	OpDaemonReload      = "daemon-reload"
	OpRestartService    = "restart-service"
)

// maxOutput bounds the command output kept in an error message.
const maxOutput = 2048

// CommandError is returned when a remote command could not run or exited non-zero.
type CommandError struct {
	Host     string
	Op       string
	Command  string
	ExitCode int
	Output   string
	// Err is set when the command could not be run at all.
	Err error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Host, e.Err)
	}
	msg := fmt.Sprintf("%s on %s: exit code %d", e.Op, e.Host, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		if len(out) > maxOutput {
			out = "..." + out[len(out)-maxOutput:]
		}
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
