package hostops

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/kballard/go-shellquote"

	"github.com/imamik/kuberoll/internal/platform/ssh"
)

// Executor runs a command on a host. *ssh.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, host, command string) (ssh.Result, error)
}

// Options configures how commands are built.
type Options struct {
	// Sudo prefixes privileged commands with "sudo -n".
	Sudo bool
	// RepositoryFile is the apt source file holding the versioned channel.
	RepositoryFile string
}

// Package is a package pinned to an exact version.
type Package struct {
	Name    string
	Version string
}

func (p Package) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "=" + p.Version
}

// Ops issues host operations through an Executor.
type Ops struct {
	exec Executor
	opts Options
	log  logr.Logger
}

// New creates an Ops.
func New(exec Executor, opts Options, log logr.Logger) *Ops {
	return &Ops{exec: exec, opts: opts, log: log.WithName("hostops")}
}

var channelPattern = regexp.MustCompile(`^v\d+\.\d+$`)

// RewriteRepository points the repository file at channel ("v1.29") and
// verifies the file references it afterwards. Rewriting to the channel
// already present is a no-op on the file contents.
func (o *Ops) RewriteRepository(ctx context.Context, host, channel string) error {
	if !channelPattern.MatchString(channel) {
		return fmt.Errorf("invalid repository channel %q", channel)
	}
	expr := fmt.Sprintf(`s#v[0-9]\+\.[0-9]\+/deb#%s/deb#g`, channel)
	if _, err := o.run(ctx, host, OpRewriteRepository, o.privileged("sed", "-i", expr, o.opts.RepositoryFile)); err != nil {
		return err
	}
	_, err := o.run(ctx, host, OpVerifyRepository, o.privileged("grep", "-qF", channel+"/deb", o.opts.RepositoryFile))
	return err
}

// RefreshIndex refreshes the package index.
func (o *Ops) RefreshIndex(ctx context.Context, host string) error {
	_, err := o.run(ctx, host, OpRefreshIndex, o.apt("apt-get", "update", "-q"))
	return err
}

// ListAvailableVersions returns the versions of pkg the index offers, in the
// order apt-cache reports them.
func (o *Ops) ListAvailableVersions(ctx context.Context, host, pkg string) ([]string, error) {
	out, err := o.run(ctx, host, OpListVersions, shellquote.Join("apt-cache", "madison", pkg))
	if err != nil {
		return nil, err
	}
	return ParseMadison(out, pkg), nil
}

// ParseMadison extracts the version column of `apt-cache madison` output
// for pkg. Duplicate versions from several sources are reported once.
func ParseMadison(out, pkg string) []string {
	var versions []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			continue
		}
		if strings.TrimSpace(fields[0]) != pkg {
			continue
		}
		v := strings.TrimSpace(fields[1])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		versions = append(versions, v)
	}
	return versions
}

// Unhold releases version pins on pkgs.
func (o *Ops) Unhold(ctx context.Context, host string, pkgs ...string) error {
	_, err := o.run(ctx, host, OpUnhold, o.privileged(append([]string{"apt-mark", "unhold"}, pkgs...)...))
	return err
}

// Hold pins pkgs at their installed versions.
func (o *Ops) Hold(ctx context.Context, host string, pkgs ...string) error {
	_, err := o.run(ctx, host, OpHold, o.privileged(append([]string{"apt-mark", "hold"}, pkgs...)...))
	return err
}

// Install installs pkgs at their exact versions.
func (o *Ops) Install(ctx context.Context, host string, pkgs ...Package) error {
	args := []string{"apt-get", "install", "-y", "-q", "--allow-change-held-packages", "--allow-downgrades"}
	for _, p := range pkgs {
		args = append(args, p.String())
	}
	_, err := o.run(ctx, host, OpInstall, o.apt(args...))
	return err
}

// UpgradeApply runs `kubeadm upgrade apply` for version ("v1.29.10") on the
// first control-plane node.
func (o *Ops) UpgradeApply(ctx context.Context, host, version string, etcdUpgrade bool) error {
	cmd := o.privileged("kubeadm", "upgrade", "apply", "-y", version, fmt.Sprintf("--etcd-upgrade=%t", etcdUpgrade))
	_, err := o.run(ctx, host, OpUpgradeApply, cmd)
	return err
}

// UpgradeNode runs `kubeadm upgrade node` on any node but the first control-plane node.
func (o *Ops) UpgradeNode(ctx context.Context, host string) error {
	_, err := o.run(ctx, host, OpUpgradeNode, o.privileged("kubeadm", "upgrade", "node"))
	return err
}

// DaemonReload reloads systemd unit files.
func (o *Ops) DaemonReload(ctx context.Context, host string) error {
	_, err := o.run(ctx, host, OpDaemonReload, o.privileged("systemctl", "daemon-reload"))
	return err
}

// RestartService restarts a systemd unit.
func (o *Ops) RestartService(ctx context.Context, host, service string) error {
	_, err := o.run(ctx, host, OpRestartService, o.privileged("systemctl", "restart", service))
	return err
}

func (o *Ops) privileged(args ...string) string {
	if o.opts.Sudo {
		args = append([]string{"sudo", "-n"}, args...)
	}
	return shellquote.Join(args...)
}

// apt runs an apt command without interactive prompts.
func (o *Ops) apt(args ...string) string {
	env := []string{"env", "DEBIAN_FRONTEND=noninteractive"}
	return o.privileged(append(env, args...)...)
}

func (o *Ops) run(ctx context.Context, host, op, command string) (string, error) {
	log := o.log.WithValues("host", host, "op", op)
	log.V(1).Info("executing", "command", command)

	res, err := o.exec.Execute(ctx, host, command)
	if err != nil {
		return "", &CommandError{Host: host, Op: op, Command: command, Err: err}
	}
	if res.ExitCode != 0 {
		return res.Stdout, &CommandError{
			Host:     host,
			Op:       op,
			Command:  command,
			ExitCode: res.ExitCode,
			Output:   strings.TrimSpace(res.Stdout + "\n" + res.Stderr),
		}
	}
	return res.Stdout, nil
}
