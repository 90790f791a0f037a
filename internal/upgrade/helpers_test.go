package upgrade

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/topology"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Ready.PollInterval = time.Millisecond
	cfg.Ready.Timeout = 2 * time.Second
	return cfg
}

// threeNodes is the topology {leader: h1/n1, followers: [h2/n2], workers: [h3/n3]}.
func threeNodes() *topology.Topology {
	topo, err := topology.New([]topology.Node{
		{Role: topology.RoleLeader, Host: "h1", Name: "n1"},
		{Role: topology.RoleFollower, Host: "h2", Name: "n2"},
		{Role: topology.RoleWorker, Host: "h3", Name: "n3"},
	})
	if err != nil {
		panic(err)
	}
	return topo
}

func newTestSequencer(cfg *config.Config, rec *recorder, obs Observer, opts ...Option) *Sequencer {
	if obs == nil {
		obs = &eventLog{}
	}
	opts = append([]Option{WithObserver(obs), WithLogger(logr.Discard())}, opts...)
	return NewSequencer(cfg, rec, rec, opts...)
}

func newTestNodeUpgrader(cfg *config.Config, rec *recorder, obs Observer) *NodeUpgrader {
	if obs == nil {
		obs = &eventLog{}
	}
	c := *cfg
	c.ApplyDefaults()
	return NewNodeUpgrader(c, rec, rec, obs, logr.Discard())
}

var (
	leaderNode   = topology.Node{Role: topology.RoleLeader, Host: "h1", Name: "n1"}
	followerNode = topology.Node{Role: topology.RoleFollower, Host: "h2", Name: "n2"}
	workerNode   = topology.Node{Role: topology.RoleWorker, Host: "h3", Name: "n3"}

	testPlan = &UpgradePlan{
		From:               ClusterVersion{1, 28, 4},
		TargetMajor:        1,
		TargetMinor:        29,
		TargetFullVersion:  "1.29.3-00",
		TargetShortVersion: "v1.29.3",
	}
)
