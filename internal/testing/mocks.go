package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/kube"
)

// MockCluster is a mock implementation of the cluster control API.
type MockCluster struct {
	mock.Mock
}

// ServerVersion returns the mocked control-plane version.
func (m *MockCluster) ServerVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Drain records a drain of the named node.
func (m *MockCluster) Drain(ctx context.Context, name string, opts kube.DrainOptions) error {
	args := m.Called(ctx, name, opts)
	return args.Error(0)
}

// Uncordon records an uncordon of the named node.
func (m *MockCluster) Uncordon(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// NodeReady returns the mocked Ready condition of the named node.
func (m *MockCluster) NodeReady(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// ListNodes returns the mocked node list.
func (m *MockCluster) ListNodes(ctx context.Context) ([]kube.NodeInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kube.NodeInfo), args.Error(1)
}

// MockHost is a mock implementation of the host operations.
type MockHost struct {
	mock.Mock
}

// RewriteRepository records a repository channel rewrite.
func (m *MockHost) RewriteRepository(ctx context.Context, host, channel string) error {
	return m.Called(ctx, host, channel).Error(0)
}

// RefreshIndex records a package index refresh.
func (m *MockHost) RefreshIndex(ctx context.Context, host string) error {
	return m.Called(ctx, host).Error(0)
}

// ListAvailableVersions returns the mocked candidate versions of pkg.
func (m *MockHost) ListAvailableVersions(ctx context.Context, host, pkg string) ([]string, error) {
	args := m.Called(ctx, host, pkg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Unhold records releasing the pins of pkgs.
func (m *MockHost) Unhold(ctx context.Context, host string, pkgs ...string) error {
	return m.Called(ctx, host, pkgs).Error(0)
}

// Hold records pinning pkgs.
func (m *MockHost) Hold(ctx context.Context, host string, pkgs ...string) error {
	return m.Called(ctx, host, pkgs).Error(0)
}

// Install records installing pkgs.
func (m *MockHost) Install(ctx context.Context, host string, pkgs ...hostops.Package) error {
	return m.Called(ctx, host, pkgs).Error(0)
}

// UpgradeApply records `kubeadm upgrade apply`.
func (m *MockHost) UpgradeApply(ctx context.Context, host, version string, etcdUpgrade bool) error {
	return m.Called(ctx, host, version, etcdUpgrade).Error(0)
}

// UpgradeNode records `kubeadm upgrade node`.
func (m *MockHost) UpgradeNode(ctx context.Context, host string) error {
	return m.Called(ctx, host).Error(0)
}

// DaemonReload records a systemd daemon reload.
func (m *MockHost) DaemonReload(ctx context.Context, host string) error {
	return m.Called(ctx, host).Error(0)
}

// RestartService records a service restart.
func (m *MockHost) RestartService(ctx context.Context, host, service string) error {
	return m.Called(ctx, host, service).Error(0)
}
