package upgrade

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/kube"
	"github.com/imamik/kuberoll/internal/topology"
)

// NodeUpgrader moves one node through the upgrade state machine.
type NodeUpgrader struct {
	cluster Cluster
	host    Host
	cfg     config.Config
	obs     Observer
	log     logr.Logger
}

// NewNodeUpgrader creates a NodeUpgrader. cfg must have defaults applied.
func NewNodeUpgrader(cfg config.Config, cluster Cluster, host Host, obs Observer, log logr.Logger) *NodeUpgrader {
	return &NodeUpgrader{cluster: cluster, host: host, cfg: cfg, obs: obs, log: log}
}

// Run drains, upgrades, uncordons and waits for node. onState is called
// after every transition.
func (u *NodeUpgrader) Run(ctx context.Context, node topology.Node, plan *UpgradePlan, onState func(NodeState)) error {
	if onState == nil {
		onState = func(NodeState) {}
	}
	onState(NodePending)

	if err := u.Drain(ctx, node); err != nil {
		return err
	}
	onState(NodeDrained)

	if err := u.UpgradeSoftware(ctx, node, plan); err != nil {
		return err
	}
	onState(NodeSoftwareUpgraded)

	if err := u.Uncordon(ctx, node); err != nil {
		return err
	}
	onState(NodeUncordoned)

	if err := u.WaitReady(ctx, node); err != nil {
		return err
	}
	onState(NodeReady)
	return nil
}

// Drain cordons the node and evicts its workloads.
func (u *NodeUpgrader) Drain(ctx context.Context, node topology.Node) error {
	opts := kube.DrainOptions{
		IgnoreDaemonSets:   *u.cfg.Drain.IgnoreDaemonSets,
		DeleteEmptyDirData: *u.cfg.Drain.DeleteEmptyDirData,
		Force:              u.cfg.Drain.Force,
		GracePeriodSeconds: *u.cfg.Drain.GracePeriodSeconds,
		Timeout:            u.cfg.Drain.Timeout,
	}
	err := u.step(node, StepDrain, func() error {
		return u.cluster.Drain(ctx, node.Name, opts)
	})
	if err != nil {
		return &DrainError{Node: node.Name, Err: err}
	}
	return nil
}

type softwareStep struct {
	name Step
	run  func(ctx context.Context) error
}

// softwareSteps lists the host operations of a software upgrade in order.
// The best-effort runtime restart is not part of the list.
func (u *NodeUpgrader) softwareSteps(node topology.Node, plan *UpgradePlan) []softwareStep {
	h := node.Host
	pkgs := u.cfg.Packages.All()

	kubeadm := softwareStep{StepUpgradeNode, func(ctx context.Context) error {
		return u.host.UpgradeNode(ctx, h)
	}}
	if node.IsLeader() {
		kubeadm = softwareStep{StepUpgradeApply, func(ctx context.Context) error {
			return u.host.UpgradeApply(ctx, h, plan.TargetShortVersion, true)
		}}
	}

	nodePkgs := make([]hostops.Package, 0, len(u.cfg.Packages.Node))
	for _, name := range u.cfg.Packages.Node {
		nodePkgs = append(nodePkgs, hostops.Package{Name: name, Version: plan.TargetFullVersion})
	}

	steps := []softwareStep{
		{StepUnhold, func(ctx context.Context) error {
			return u.host.Unhold(ctx, h, pkgs...)
		}},
		{StepRefreshIndex, func(ctx context.Context) error {
			return u.host.RefreshIndex(ctx, h)
		}},
		{StepInstallTool, func(ctx context.Context) error {
			return u.host.Install(ctx, h, hostops.Package{Name: u.cfg.Packages.Tool, Version: plan.TargetFullVersion})
		}},
		kubeadm,
	}
	if len(nodePkgs) > 0 {
		steps = append(steps, softwareStep{StepInstallNodePackages, func(ctx context.Context) error {
			return u.host.Install(ctx, h, nodePkgs...)
		}})
	}
	return append(steps,
		softwareStep{StepDaemonReload, func(ctx context.Context) error {
			return u.host.DaemonReload(ctx, h)
		}},
		softwareStep{StepRestartKubelet, func(ctx context.Context) error {
			return u.host.RestartService(ctx, h, u.cfg.Services.Kubelet)
		}},
	)
}

// UpgradeSoftware installs the target version on the node's host and runs
// the kubeadm upgrade for its role. Running it again on an upgraded host
// installs nothing new and succeeds.
func (u *NodeUpgrader) UpgradeSoftware(ctx context.Context, node topology.Node, plan *UpgradePlan) error {
	for _, s := range u.softwareSteps(node, plan) {
		if err := u.step(node, s.name, func() error { return s.run(ctx) }); err != nil {
			return &SoftwareUpgradeError{Host: node.Host, Step: s.name, Err: err}
		}
	}

	if u.cfg.Services.RestartRuntime {
		u.RestartRuntime(ctx, node)
	}

	err := u.step(node, StepHold, func() error {
		return u.host.Hold(ctx, node.Host, u.cfg.Packages.All()...)
	})
	if err != nil {
		return &SoftwareUpgradeError{Host: node.Host, Step: StepHold, Err: err}
	}
	return nil
}

// RestartRuntime restarts the container runtime. A failure is reported and
// otherwise ignored.
func (u *NodeUpgrader) RestartRuntime(ctx context.Context, node topology.Node) StepResult {
	start := time.Now()
	err := u.host.RestartService(ctx, node.Host, u.cfg.Services.Runtime)
	if err != nil {
		u.obs.Event(Event{
			Type:     EventStepBestEffortFailed,
			Node:     node.Name,
			Host:     node.Host,
			Role:     string(node.Role),
			Step:     StepRestartRuntime,
			Message:  "container runtime restart failed, continuing",
			Duration: time.Since(start),
			Err:      err,
		})
		return StepIgnoredFailure
	}
	u.obs.Event(Event{
		Type:     EventStepCompleted,
		Node:     node.Name,
		Host:     node.Host,
		Role:     string(node.Role),
		Step:     StepRestartRuntime,
		Duration: time.Since(start),
	})
	return StepOK
}

// Uncordon marks the node schedulable.
func (u *NodeUpgrader) Uncordon(ctx context.Context, node topology.Node) error {
	err := u.step(node, StepUncordon, func() error {
		return u.cluster.Uncordon(ctx, node.Name)
	})
	if err != nil {
		return &UncordonError{Node: node.Name, Err: err}
	}
	return nil
}

// WaitReady polls the node's Ready condition until it is true. API errors
// count as not ready. The wait ends with a WaitReadyError when ctx is done;
// when the configured timeout expires the error is returned only if
// ready.on_timeout is abort.
func (u *NodeUpgrader) WaitReady(ctx context.Context, node topology.Node) error {
	log := u.log.WithValues("node", node.Name)
	timeout := u.cfg.Ready.Timeout

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := wait.PollUntilContextCancel(waitCtx, u.cfg.Ready.PollInterval, true, func(ctx context.Context) (bool, error) {
		ready, err := u.cluster.NodeReady(ctx, node.Name)
		if err != nil {
			log.V(1).Info("readiness check failed", "error", err.Error())
			return false, nil
		}
		if !ready {
			log.V(1).Info("node not ready yet", "waited", time.Since(start).Round(time.Second).String())
		}
		return ready, nil
	})
	if err == nil {
		u.obs.Event(Event{
			Type:     EventStepCompleted,
			Node:     node.Name,
			Host:     node.Host,
			Role:     string(node.Role),
			Step:     StepWaitReady,
			Duration: time.Since(start),
		})
		return nil
	}

	if ctx.Err() != nil {
		return u.waitFailed(node, start, &WaitReadyError{Node: node.Name, Err: ctx.Err()})
	}
	if waitCtx.Err() == nil {
		return u.waitFailed(node, start, &WaitReadyError{Node: node.Name, Timeout: timeout, Err: err})
	}

	if u.cfg.Ready.OnTimeout == config.TimeoutWarn {
		u.obs.Event(Event{
			Type:     EventStepBestEffortFailed,
			Node:     node.Name,
			Host:     node.Host,
			Role:     string(node.Role),
			Step:     StepWaitReady,
			Message:  "node did not become Ready in time, continuing",
			Duration: time.Since(start),
			Err:      err,
		})
		return nil
	}
	return u.waitFailed(node, start, &WaitReadyError{Node: node.Name, Timeout: timeout, Err: err})
}

func (u *NodeUpgrader) waitFailed(node topology.Node, start time.Time, err error) error {
	u.obs.Event(Event{
		Type:     EventStepFailed,
		Node:     node.Name,
		Host:     node.Host,
		Role:     string(node.Role),
		Step:     StepWaitReady,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// step runs fn and reports its outcome to the observer.
func (u *NodeUpgrader) step(node topology.Node, name Step, fn func() error) error {
	start := time.Now()
	err := fn()
	e := Event{
		Type:     EventStepCompleted,
		Node:     node.Name,
		Host:     node.Host,
		Role:     string(node.Role),
		Step:     name,
		Duration: time.Since(start),
	}
	if err != nil {
		e.Type = EventStepFailed
		e.Err = err
	}
	u.obs.Event(e)
	return err
}

// PlannedSteps lists the steps Run performs for node, in order.
func (u *NodeUpgrader) PlannedSteps(node topology.Node) []Step {
	steps := []Step{StepDrain}
	for _, s := range u.softwareSteps(node, &UpgradePlan{}) {
		steps = append(steps, s.name)
	}
	if u.cfg.Services.RestartRuntime {
		steps = append(steps, StepRestartRuntime)
	}
	return append(steps, StepHold, StepUncordon, StepWaitReady)
}
