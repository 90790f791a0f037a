package upgrade

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/hostops"
	kutesting "github.com/imamik/kuberoll/internal/testing"
)

var (
	_ Cluster = (*kutesting.MockCluster)(nil)
	_ Host    = (*kutesting.MockHost)(nil)
)

func TestSequencer_Mocks_Successful(t *testing.T) {
	fixture := kutesting.NewUpgradeFixture("v1.28.4", "1.29.1-00", "1.29.10-00", "1.29.2-00")
	cluster, host := fixture.Successful("n1", "n2", "n3")

	cfg := kutesting.NewConfigBuilder().Build()
	seq := NewSequencer(cfg, cluster, host, WithObserver(&eventLog{}), WithLogger(logr.Discard()))

	require.NoError(t, seq.RunUpgrade(kutesting.TestContext(t), threeNodes()))

	cluster.AssertExpectations(t)
	host.AssertExpectations(t)

	host.AssertCalled(t, "UpgradeApply", mock.Anything, "h1", "v1.29.10", true)
	host.AssertNumberOfCalls(t, "UpgradeApply", 1)
	host.AssertCalled(t, "UpgradeNode", mock.Anything, "h2")
	host.AssertCalled(t, "UpgradeNode", mock.Anything, "h3")
	host.AssertNumberOfCalls(t, "ListAvailableVersions", 1)
	host.AssertCalled(t, "ListAvailableVersions", mock.Anything, "h1", "kubeadm")

	for _, h := range []string{"h1", "h2", "h3"} {
		host.AssertCalled(t, "RewriteRepository", mock.Anything, h, "v1.29")
		host.AssertCalled(t, "Unhold", mock.Anything, h, []string{"kubeadm", "kubelet", "kubectl"})
		host.AssertCalled(t, "Install", mock.Anything, h, []hostops.Package{{Name: "kubeadm", Version: "1.29.10-00"}})
		host.AssertCalled(t, "Install", mock.Anything, h, []hostops.Package{
			{Name: "kubelet", Version: "1.29.10-00"},
			{Name: "kubectl", Version: "1.29.10-00"},
		})
		host.AssertCalled(t, "Hold", mock.Anything, h, []string{"kubeadm", "kubelet", "kubectl"})
		host.AssertCalled(t, "RestartService", mock.Anything, h, "kubelet")
	}
	host.AssertNotCalled(t, "RestartService", mock.Anything, mock.Anything, "containerd")

	assert.Equal(t, PhaseDone, seq.State().Phase)
	assert.Equal(t, "1.29.10-00", seq.Plan().TargetFullVersion)
}

func TestSequencer_Mocks_DrainFailureStopsRun(t *testing.T) {
	fixture := kutesting.NewUpgradeFixture("v1.28.4", "1.29.3-00")
	cluster := fixture.Cluster()
	host := fixture.Host()

	cluster.On("Drain", mock.Anything, "n2", mock.Anything).Return(errors.New("pdb violation"))
	cluster, host = fixture.Successful("n1", "n3")

	cfg := kutesting.NewConfigBuilder().Build()
	seq := NewSequencer(cfg, cluster, host, WithObserver(&eventLog{}), WithLogger(logr.Discard()))

	err := seq.RunUpgrade(kutesting.TestContext(t), threeNodes())

	var drainErr *DrainError
	require.ErrorAs(t, err, &drainErr)
	assert.Equal(t, "n2", drainErr.Node)

	cluster.AssertNotCalled(t, "Drain", mock.Anything, "n3", mock.Anything)
	host.AssertNotCalled(t, "RewriteRepository", mock.Anything, "h3", mock.Anything)
	host.AssertNotCalled(t, "UpgradeNode", mock.Anything, "h2")
	assert.Equal(t, PhaseAborted, seq.State().Phase)
}

func TestSequencer_Mocks_RuntimeRestartIsBestEffort(t *testing.T) {
	fixture := kutesting.NewUpgradeFixture("v1.28.4", "1.29.3-00")
	host := fixture.Host()
	host.On("RestartService", mock.Anything, "h1", "crio").Return(errors.New("unit crio.service not found"))
	cluster, host := fixture.Successful("n1")

	topo := threeNodes()
	topo.Followers = nil
	topo.Workers = nil

	events := &eventLog{}
	cfg := kutesting.NewConfigBuilder().WithRestartRuntime("crio").Build()
	seq := NewSequencer(cfg, cluster, host, WithObserver(events), WithLogger(logr.Discard()))

	require.NoError(t, seq.RunUpgrade(kutesting.TestContext(t), topo))

	host.AssertCalled(t, "RestartService", mock.Anything, "h1", "crio")
	host.AssertCalled(t, "Hold", mock.Anything, "h1", mock.Anything)
	require.Len(t, events.OfType(EventStepBestEffortFailed), 1)
	assert.Equal(t, StepRestartRuntime, events.OfType(EventStepBestEffortFailed)[0].Step)
}

func TestSequencer_Mocks_ReadyTimeoutWarn(t *testing.T) {
	fixture := kutesting.NewUpgradeFixture("v1.28.4", "1.29.3-00")
	cluster := fixture.Cluster()
	cluster.On("NodeReady", mock.Anything, "n2").Return(false, nil)
	cluster, host := fixture.Successful("n1", "n3")
	cluster.On("Drain", mock.Anything, "n2", mock.Anything).Return(nil)
	cluster.On("Uncordon", mock.Anything, "n2").Return(nil)

	cfg := kutesting.NewConfigBuilder().
		WithReadyTimeout(20 * time.Millisecond).
		WithOnTimeout(config.TimeoutWarn).
		Build()
	events := &eventLog{}
	seq := NewSequencer(cfg, cluster, host, WithObserver(events), WithLogger(logr.Discard()))

	require.NoError(t, seq.RunUpgrade(kutesting.TestContext(t), threeNodes()))
	cluster.AssertCalled(t, "Drain", mock.Anything, "n3", mock.Anything)

	warned := events.OfType(EventStepBestEffortFailed)
	require.Len(t, warned, 1)
	assert.Equal(t, "n2", warned[0].Node)
	assert.Equal(t, StepWaitReady, warned[0].Step)
}
