package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/platform/hcloud"
	"github.com/imamik/kuberoll/internal/platform/ssh"
	"github.com/imamik/kuberoll/internal/upgrade"
)

const validConfig = `
inventory:
  file: hosts
ssh:
  private_key_path: /keys/id_ed25519
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kuberoll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_EmptyPath_NoDefaultFile(t *testing.T) {
	saveAndRestoreFactories(t)

	findConfigFile = func() (string, error) {
		return "", errors.New("config file kuberoll.yaml not found")
	}

	_, err := loadConfig("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config file found")
}

func TestLoadConfig_EmptyPath_UsesDefaultFile(t *testing.T) {
	saveAndRestoreFactories(t)

	path := writeConfig(t, validConfig)
	findConfigFile = func() (string, error) { return path, nil }

	cfg, err := loadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "hosts"), cfg.Inventory.File)
}

func TestLoadConfig_InventoryOverride(t *testing.T) {
	saveAndRestoreFactories(t)

	cfg, err := loadConfig(writeConfig(t, validConfig), "/tmp/other-hosts")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other-hosts", cfg.Inventory.File)
}

func TestLoadConfig_Invalid(t *testing.T) {
	saveAndRestoreFactories(t)

	_, err := loadConfig(writeConfig(t, "ssh:\n  user: root\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestSSHConfig(t *testing.T) {
	saveAndRestoreFactories(t)

	readFile = func(name string) ([]byte, error) {
		assert.Equal(t, "/keys/id_ed25519", name)
		return []byte("KEY"), nil
	}

	cfg := config.Default()
	cfg.SSH.PrivateKeyPath = "/keys/id_ed25519"
	cfg.SSH.KnownHostsPath = "/keys/known_hosts"

	got, err := sshConfig(cfg.SSH)
	require.NoError(t, err)
	assert.Equal(t, []byte("KEY"), got.PrivateKey)
	assert.Equal(t, "root", got.User)
	assert.Equal(t, 22, got.Port)
	assert.Equal(t, "/keys/known_hosts", got.KnownHostsPath)
	require.NotNil(t, got.MaxRetries)
	assert.Equal(t, config.DefaultSSHConnectRetries, *got.MaxRetries)
}

func TestConnect_MissingKey(t *testing.T) {
	saveAndRestoreFactories(t)

	newCluster = func(string, logr.Logger) (upgrade.Cluster, error) { return newFakeCluster(), nil }
	readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }

	cfg := config.Default()
	cfg.SSH.PrivateKeyPath = "/missing"

	_, err := connect(context.Background(), cfg, logr.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read SSH private key")
}

func TestConnect_ClusterError(t *testing.T) {
	saveAndRestoreFactories(t)

	newCluster = func(string, logr.Logger) (upgrade.Cluster, error) { return nil, errors.New("no kubeconfig") }

	_, err := connect(context.Background(), config.Default(), logr.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create cluster client")
}

func TestConnect_InventoryFile(t *testing.T) {
	saveAndRestoreFactories(t)

	inventory := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(inventory, []byte("leader 10.0.0.1 cp-1\nworker 10.0.0.3 worker-1\n"), 0600))

	newCluster = func(string, logr.Logger) (upgrade.Cluster, error) { return newFakeCluster(), nil }
	readFile = func(string) ([]byte, error) { return []byte("KEY"), nil }
	exec := &recordingExecutor{}
	newExecutor = func(*ssh.Config, logr.Logger) (hostops.Executor, error) { return exec, nil }

	cfg := config.Default()
	cfg.Inventory.File = inventory

	s, err := connect(context.Background(), cfg, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, "cp-1", s.topo.Leader.Name)
	assert.Len(t, s.topo.Workers, 1)
}

type fakeServerLister struct {
	servers []hcloud.Server
	labels  map[string]string
}

func (f *fakeServerLister) ListServers(_ context.Context, labels map[string]string) ([]hcloud.Server, error) {
	f.labels = labels
	return f.servers, nil
}

func TestLoadTopology_HCloud(t *testing.T) {
	saveAndRestoreFactories(t)
	t.Setenv("TEST_HCLOUD_TOKEN", "secret")

	lister := &fakeServerLister{servers: []hcloud.Server{
		{Name: "cp-1", PublicIP: "1.1.1.1", Labels: map[string]string{"role": "control-plane"}},
		{Name: "worker-1", PublicIP: "1.1.1.2", Labels: map[string]string{"role": "worker"}},
	}}
	var gotToken string
	newServerLister = func(token string) hcloud.ServerLister {
		gotToken = token
		return lister
	}

	cfg := config.Default()
	cfg.Inventory.HCloud = &config.HCloudConfig{Cluster: "prod", ClusterLabel: "cluster", TokenEnv: "TEST_HCLOUD_TOKEN"}

	topo, err := loadTopology(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, map[string]string{"cluster": "prod"}, lister.labels)
	assert.Equal(t, "1.1.1.1", topo.Leader.Host)
	assert.Len(t, topo.Workers, 1)
}

func TestLoadTopology_HCloudMissingToken(t *testing.T) {
	saveAndRestoreFactories(t)
	t.Setenv("TEST_HCLOUD_TOKEN", "")

	cfg := config.Default()
	cfg.Inventory.HCloud = &config.HCloudConfig{Cluster: "prod", ClusterLabel: "cluster", TokenEnv: "TEST_HCLOUD_TOKEN"}

	_, err := loadTopology(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_HCLOUD_TOKEN environment variable is required")
}

func TestLoadTopology_MissingInventoryFile(t *testing.T) {
	cfg := config.Default()
	cfg.Inventory.File = "/nonexistent/hosts"

	_, err := loadTopology(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load inventory")
}
