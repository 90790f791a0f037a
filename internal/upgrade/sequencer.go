package upgrade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/topology"
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithObserver sets the observer receiving run events.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		s.obs = o
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(s *Sequencer) {
		s.log = log
	}
}

// WithDryRun stops the run after the plan is resolved. The leader's
// repository channel is still rewritten because resolution needs it.
func WithDryRun(dryRun bool) Option {
	return func(s *Sequencer) {
		s.dryRun = dryRun
	}
}

// NodePlan is the ordered list of steps a node goes through.
type NodePlan struct {
	Node  topology.Node
	Steps []Step
}

// Sequencer upgrades the nodes of a topology one at a time.
type Sequencer struct {
	cfg      config.Config
	cluster  Cluster
	host     Host
	obs      Observer
	log      logr.Logger
	dryRun   bool
	resolver *Resolver
	nodes    *NodeUpgrader

	mu    sync.Mutex
	state RunState
	plan  *UpgradePlan
}

// NewSequencer creates a Sequencer. cfg is copied and its defaults applied;
// later changes to cfg do not affect the Sequencer.
func NewSequencer(cfg *config.Config, cluster Cluster, host Host, opts ...Option) *Sequencer {
	s := &Sequencer{
		cluster: cluster,
		host:    host,
		log:     logr.Discard(),
		state:   RunState{NodeIndex: -1},
	}
	if cfg != nil {
		s.cfg = *cfg.Clone()
	}
	s.cfg.ApplyDefaults()

	for _, opt := range opts {
		opt(s)
	}
	if s.obs == nil {
		s.obs = NewLogObserver(s.log)
	}

	s.log = s.log.WithName("upgrade")
	s.resolver = NewResolver(cluster, host, s.cfg.Packages.Tool, s.log)
	s.nodes = NewNodeUpgrader(s.cfg, cluster, host, s.obs, s.log)
	return s
}

// State returns a snapshot of the run state.
func (s *Sequencer) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Plan returns the resolved plan, or nil before resolution.
func (s *Sequencer) Plan() *UpgradePlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// NodePlans lists the steps of every node in upgrade order.
func (s *Sequencer) NodePlans(topo *topology.Topology) []NodePlan {
	ordered := topo.Ordered()
	plans := make([]NodePlan, 0, len(ordered))
	for _, n := range ordered {
		plans = append(plans, NodePlan{Node: n, Steps: s.nodes.PlannedSteps(n)})
	}
	return plans
}

// Resolve validates the topology and resolves the plan without upgrading
// any node.
func (s *Sequencer) Resolve(ctx context.Context, topo *topology.Topology) (*UpgradePlan, error) {
	if err := checkTopology(topo); err != nil {
		return nil, err
	}
	return s.resolve(ctx, topo)
}

// RunUpgrade upgrades every node of topo: the leader, then the followers,
// then the workers, each in inventory order. It stops at the first error
// and leaves the cluster as it is.
func (s *Sequencer) RunUpgrade(ctx context.Context, topo *topology.Topology) error {
	if err := checkTopology(topo); err != nil {
		return err
	}

	plan, err := s.resolve(ctx, topo)
	if err != nil {
		return err
	}

	if s.dryRun {
		for i, np := range s.NodePlans(topo) {
			s.log.Info("dry run: would upgrade node", "index", i, "node", np.Node.Name, "host", np.Node.Host,
				"role", string(np.Node.Role), "steps", np.Steps)
		}
		s.finish()
		return nil
	}

	index := 0
	groups := []struct {
		phase         Phase
		nodes         []topology.Node
		setRepository bool
	}{
		{PhaseUpgradingLeader, []topology.Node{topo.Leader}, false},
		{PhaseUpgradingFollowers, topo.Followers, true},
		{PhaseUpgradingWorkers, topo.Workers, true},
	}
	for _, g := range groups {
		start := time.Now()
		s.setPhase(g.phase)

		for i, node := range g.nodes {
			s.obs.Progress(g.phase, i+1, len(g.nodes))
			if err := s.upgradeNode(ctx, index, node, plan, g.setRepository); err != nil {
				return s.abort(g.phase, err)
			}
			index++
		}

		s.obs.Event(Event{Type: EventPhaseCompleted, Phase: g.phase, Duration: time.Since(start)})
	}

	s.finish()
	return nil
}

func checkTopology(topo *topology.Topology) error {
	if topo == nil {
		return &PreconditionError{Reason: "no topology"}
	}
	if err := topo.Validate(); err != nil {
		return &PreconditionError{Reason: "invalid topology", Err: err}
	}
	return nil
}

func (s *Sequencer) resolve(ctx context.Context, topo *topology.Topology) (*UpgradePlan, error) {
	s.setPhase(PhaseResolvingVersion)
	start := time.Now()

	plan, err := s.resolver.ResolveUpgradePlan(ctx, topo.Leader)
	if err != nil {
		return nil, s.abort(PhaseResolvingVersion, err)
	}

	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()

	s.obs.Event(Event{
		Type:     EventPhaseCompleted,
		Phase:    PhaseResolvingVersion,
		Message:  fmt.Sprintf("target version %s (%s)", plan.TargetFullVersion, plan.TargetShortVersion),
		Duration: time.Since(start),
	})
	return plan, nil
}

func (s *Sequencer) upgradeNode(ctx context.Context, index int, node topology.Node, plan *UpgradePlan, setRepository bool) error {
	s.mu.Lock()
	s.state.NodeIndex = index
	s.state.Node = node.Name
	s.state.NodeState = NodePending
	s.mu.Unlock()

	ev := Event{Node: node.Name, Host: node.Host, Role: string(node.Role)}
	start := time.Now()

	ev.Type = EventNodeStarted
	ev.Message = "upgrading node"
	s.obs.Event(ev)

	err := s.runNode(ctx, node, plan, setRepository)
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Type = EventNodeFailed
		ev.Message = fmt.Sprintf("node upgrade failed in state %s", s.State().NodeState)
		ev.Err = err
		s.obs.Event(ev)
		return err
	}

	ev.Type = EventNodeCompleted
	ev.Message = "node upgraded"
	s.obs.Event(ev)
	return nil
}

func (s *Sequencer) runNode(ctx context.Context, node topology.Node, plan *UpgradePlan, setRepository bool) error {
	if setRepository {
		channel := plan.Channel()
		if err := s.host.RewriteRepository(ctx, node.Host, channel); err != nil {
			return &RepositoryError{Host: node.Host, Channel: channel, Err: err}
		}
	}

	return s.nodes.Run(ctx, node, plan, func(st NodeState) {
		s.mu.Lock()
		s.state.NodeState = st
		s.mu.Unlock()
	})
}

func (s *Sequencer) setPhase(p Phase) {
	s.mu.Lock()
	s.state.Phase = p
	s.mu.Unlock()
	s.obs.Event(Event{Type: EventPhaseStarted, Phase: p})
}

func (s *Sequencer) finish() {
	s.mu.Lock()
	s.state.Phase = PhaseDone
	s.mu.Unlock()
	s.obs.Event(Event{Type: EventPhaseCompleted, Phase: PhaseDone, Message: "upgrade completed"})
}

func (s *Sequencer) abort(p Phase, err error) error {
	s.mu.Lock()
	s.state.Phase = PhaseAborted
	s.mu.Unlock()
	s.obs.Event(Event{Type: EventPhaseFailed, Phase: p, Message: "upgrade aborted", Err: err})
	return err
}
