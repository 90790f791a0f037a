package upgrade

// Phase is the stage of a run.
type Phase string

const (
	PhaseResolvingVersion   Phase = "ResolvingVersion"
	PhaseUpgradingLeader    Phase = "UpgradingLeader"
	PhaseUpgradingFollowers Phase = "UpgradingFollowers"
	PhaseUpgradingWorkers   Phase = "UpgradingWorkers"
	PhaseDone               Phase = "Done"
	PhaseAborted            Phase = "Aborted"
)

// Phases lists every phase in run order, Aborted last.
var Phases = []Phase{
	PhaseResolvingVersion,
	PhaseUpgradingLeader,
	PhaseUpgradingFollowers,
	PhaseUpgradingWorkers,
	PhaseDone,
	PhaseAborted,
}

// NodeState is the position of one node in the upgrade state machine.
type NodeState string

const (
	NodePending          NodeState = "Pending"
	NodeDrained          NodeState = "Drained"
	NodeSoftwareUpgraded NodeState = "SoftwareUpgraded"
	NodeUncordoned       NodeState = "Uncordoned"
	NodeReady            NodeState = "Ready"
)

// RunState is a snapshot of a run's progress. It is not persisted.
type RunState struct {
	Phase Phase
	// NodeIndex is the position of the current node in upgrade order, -1
	// before the first node.
	NodeIndex int
	Node      string
	NodeState NodeState
}
