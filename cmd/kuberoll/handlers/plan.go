package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/imamik/kuberoll/internal/upgrade"
)

// Output formats of the plan command.
const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// PlanOptions contains options for the plan command.
type PlanOptions struct {
	ConfigPath string
	Inventory  string
	Output     string
	Log        LogOptions
}

type planReport struct {
	Plan  *upgrade.UpgradePlan `json:"plan"`
	Nodes []nodeReport         `json:"nodes"`
}

type nodeReport struct {
	Name  string         `json:"name"`
	Host  string         `json:"host"`
	Role  string         `json:"role"`
	Steps []upgrade.Step `json:"steps"`
}

func newPlanReport(plan *upgrade.UpgradePlan, nodes []upgrade.NodePlan) *planReport {
	rep := &planReport{Plan: plan, Nodes: make([]nodeReport, 0, len(nodes))}
	for _, np := range nodes {
		rep.Nodes = append(rep.Nodes, nodeReport{
			Name:  np.Node.Name,
			Host:  np.Node.Host,
			Role:  string(np.Node.Role),
			Steps: np.Steps,
		})
	}
	return rep
}

// Plan handles the plan command.
//
// It resolves the target version on the leader and prints it with the
// steps every node would go through. Resolution rewrites the leader's
// repository channel and refreshes its package index; nothing else changes.
func Plan(ctx context.Context, opts PlanOptions) error {
	if err := checkOutputFormat(opts.Output); err != nil {
		return err
	}

	log := newLogger(opts.Log)

	cfg, err := loadConfig(opts.ConfigPath, opts.Inventory)
	if err != nil {
		return err
	}

	s, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	return runPlan(ctx, s, opts.Output)
}

func checkOutputFormat(format string) error {
	switch format {
	case "", OutputText, OutputYAML, OutputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use %s, %s or %s)", format, OutputText, OutputYAML, OutputJSON)
	}
}

func runPlan(ctx context.Context, s *session, format string) error {
	seq := upgrade.NewSequencer(s.cfg, s.cluster, s.host, upgrade.WithLogger(s.log))

	plan, err := seq.Resolve(ctx, s.topo)
	if err != nil {
		return fmt.Errorf("failed to resolve upgrade plan: %w", err)
	}
	rep := newPlanReport(plan, seq.NodePlans(s.topo))

	switch format {
	case OutputJSON:
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	case OutputYAML:
		data, err := yaml.Marshal(rep)
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Fprint(stdout, string(data))
	default:
		fmt.Fprint(stdout, renderer{styled: isInteractiveTTY()}.plan(rep))
	}
	return nil
}
