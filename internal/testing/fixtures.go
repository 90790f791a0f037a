package testing

import (
	"github.com/stretchr/testify/mock"
)

// UpgradeFixture provides mocks pre-configured for common upgrade scenarios.
type UpgradeFixture struct {
	ServerVersion string
	Candidates    []string

	cluster *MockCluster
	host    *MockHost
}

// NewUpgradeFixture creates a fixture whose control plane reports
// serverVersion and whose leader offers candidates.
func NewUpgradeFixture(serverVersion string, candidates ...string) *UpgradeFixture {
	return &UpgradeFixture{
		ServerVersion: serverVersion,
		Candidates:    candidates,
		cluster:       &MockCluster{},
		host:          &MockHost{},
	}
}

// Cluster returns the underlying MockCluster for custom expectations.
func (f *UpgradeFixture) Cluster() *MockCluster {
	return f.cluster
}

// Host returns the underlying MockHost for custom expectations.
func (f *UpgradeFixture) Host() *MockHost {
	return f.host
}

// Successful configures both mocks so that every operation succeeds and
// every named node reports Ready. Returns the mocks for chaining.
func (f *UpgradeFixture) Successful(nodes ...string) (*MockCluster, *MockHost) {
	f.cluster.On("ServerVersion", mock.Anything).Return(f.ServerVersion, nil)
	for _, n := range nodes {
		f.cluster.On("Drain", mock.Anything, n, mock.Anything).Return(nil)
		f.cluster.On("Uncordon", mock.Anything, n).Return(nil)
		f.cluster.On("NodeReady", mock.Anything, n).Return(true, nil)
	}

	f.host.On("RewriteRepository", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.host.On("RefreshIndex", mock.Anything, mock.Anything).Return(nil)
	f.host.On("ListAvailableVersions", mock.Anything, mock.Anything, mock.Anything).Return(f.Candidates, nil)
	f.host.On("Unhold", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.host.On("Hold", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.host.On("Install", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.host.On("UpgradeApply", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.host.On("UpgradeNode", mock.Anything, mock.Anything).Return(nil)
	f.host.On("DaemonReload", mock.Anything, mock.Anything).Return(nil)
	f.host.On("RestartService", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return f.cluster, f.host
}
