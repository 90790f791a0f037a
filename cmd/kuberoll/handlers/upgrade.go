package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/upgrade"
)

const metricsPushTimeout = 10 * time.Second

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	ConfigPath string
	Inventory  string
	DryRun     bool
	Log        LogOptions
}

// Upgrade handles the upgrade command.
//
// It upgrades the cluster by one minor version: the control-plane leader
// first, then the other control-plane nodes, then the workers. The node
// list is printed before and after the run. SIGINT and SIGTERM cancel the
// run; run metrics are pushed when a Pushgateway is configured, whether the
// run succeeded or not.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(opts.Log)

	cfg, err := loadConfig(opts.ConfigPath, opts.Inventory)
	if err != nil {
		return err
	}

	s, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	return runUpgrade(ctx, s, opts.DryRun)
}

func runUpgrade(ctx context.Context, s *session, dryRun bool) error {
	r := renderer{styled: isInteractiveTTY()}
	metrics := upgrade.NewMetrics()

	seq := upgrade.NewSequencer(s.cfg, s.cluster, s.host,
		upgrade.WithLogger(s.log),
		upgrade.WithDryRun(dryRun),
		upgrade.WithObserver(upgrade.Observers(upgrade.NewLogObserver(s.log), metrics)),
	)

	if dryRun {
		s.log.Info("dry run: resolving the plan only, no node is upgraded")
	}

	printNodes(ctx, s, r, "Nodes before upgrade")

	runErr := seq.RunUpgrade(ctx, s.topo)

	if dryRun && runErr == nil {
		fmt.Fprint(stdout, r.plan(newPlanReport(seq.Plan(), seq.NodePlans(s.topo))))
	} else if !dryRun {
		printNodes(ctx, s, r, "Nodes after upgrade")
	}

	pushMetrics(ctx, s.cfg.Metrics, metrics, s.log)

	if !dryRun {
		fmt.Fprint(stdout, r.result(runErr, seq.State()))
	}
	if runErr != nil {
		return fmt.Errorf("upgrade failed: %w", runErr)
	}
	return nil
}

// printNodes lists the cluster's nodes. A listing failure is logged and
// does not affect the run.
func printNodes(ctx context.Context, s *session, r renderer, title string) {
	if ctx.Err() != nil {
		return
	}
	nodes, err := s.cluster.ListNodes(ctx)
	if err != nil {
		s.log.Error(err, "failed to list nodes")
		return
	}
	fmt.Fprint(stdout, r.nodes(title, nodes))
}

func pushMetrics(ctx context.Context, cfg config.MetricsConfig, m *upgrade.Metrics, log logr.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}

	// The run context may already be cancelled; the push still gets a bounded attempt.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()

	if err := m.Push(pushCtx, cfg.PushgatewayURL, cfg.Job); err != nil {
		log.Error(err, "failed to push run metrics")
		return
	}
	log.V(1).Info("pushed run metrics", "url", cfg.PushgatewayURL, "job", cfg.Job)
}
