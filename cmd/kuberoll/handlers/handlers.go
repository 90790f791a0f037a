// Package handlers implements the business logic for CLI commands.
//
// Handlers are called by the command definitions in the commands package and
// can be tested without cobra. External clients are built through the
// factory variables below so tests can replace them.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/kuberoll/internal/config"
	"github.com/imamik/kuberoll/internal/hostops"
	"github.com/imamik/kuberoll/internal/logging"
	"github.com/imamik/kuberoll/internal/platform/hcloud"
	"github.com/imamik/kuberoll/internal/platform/kube"
	"github.com/imamik/kuberoll/internal/platform/ssh"
	"github.com/imamik/kuberoll/internal/topology"
	"github.com/imamik/kuberoll/internal/upgrade"
)

// LogOptions are the logging flags shared by every command.
type LogOptions struct {
	Verbose bool
	JSON    bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// findConfigFile looks up kuberoll.yaml in the working directory.
	findConfigFile = config.FindConfigFile

	// readFile reads the SSH key and known_hosts files.
	readFile = os.ReadFile

	// newCluster creates the cluster control API client.
	newCluster = func(kubeconfig string, log logr.Logger) (upgrade.Cluster, error) {
		c, err := kube.NewFromKubeconfig(kubeconfig, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	// newExecutor creates the remote command executor.
	newExecutor = func(cfg *ssh.Config, log logr.Logger) (hostops.Executor, error) {
		e, err := ssh.NewExecutor(cfg, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	// newServerLister creates the Hetzner Cloud client used for discovery.
	newServerLister = func(token string) hcloud.ServerLister {
		return hcloud.NewClient(token)
	}

	// stdout receives command output.
	stdout io.Writer = os.Stdout

	// stderr receives logs.
	stderr io.Writer = os.Stderr
)

// session holds the clients a command works with.
type session struct {
	cfg     *config.Config
	log     logr.Logger
	cluster upgrade.Cluster
	host    upgrade.Host
	topo    *topology.Topology
}

func newLogger(opts LogOptions) logr.Logger {
	return logging.New(logging.Options{Verbose: opts.Verbose, JSON: opts.JSON, Out: stderr})
}

// loadConfig loads the configuration at configPath, or kuberoll.yaml in the
// working directory when configPath is empty. A non-empty inventory replaces
// the configured topology source.
func loadConfig(configPath, inventory string) (*config.Config, error) {
	if configPath == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file found (use --config): %w", err)
		}
		configPath = found
	}

	var overrides []config.Override
	if inventory != "" {
		overrides = append(overrides, config.WithInventoryFile(inventory))
	}

	cfg, err := loadConfigFile(configPath, overrides...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// connect builds every client of an upgrade and loads the topology.
func connect(ctx context.Context, cfg *config.Config, log logr.Logger) (*session, error) {
	cluster, err := newCluster(cfg.Kubeconfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}

	sshCfg, err := sshConfig(cfg.SSH)
	if err != nil {
		return nil, err
	}
	exec, err := newExecutor(sshCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH executor: %w", err)
	}
	host := hostops.New(exec, hostops.Options{
		Sudo:           cfg.SSH.UseSudo(),
		RepositoryFile: cfg.Repository.File,
	}, log)

	topo, err := loadTopology(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: log, cluster: cluster, host: host, topo: topo}, nil
}

func sshConfig(c config.SSHConfig) (*ssh.Config, error) {
	key, err := readFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}
	return &ssh.Config{
		User:           c.User,
		Port:           c.Port,
		PrivateKey:     key,
		KnownHostsPath: c.KnownHostsPath,
		DialTimeout:    c.DialTimeout,
		MaxRetries:     c.ConnectRetries,
		RetryDelay:     c.RetryDelay,
	}, nil
}

func loadTopology(ctx context.Context, cfg *config.Config) (*topology.Topology, error) {
	if cfg.Inventory.File != "" {
		topo, err := topology.LoadInventory(cfg.Inventory.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load inventory: %w", err)
		}
		return topo, nil
	}

	hc := cfg.Inventory.HCloud
	token := os.Getenv(hc.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s environment variable is required for hcloud inventory", hc.TokenEnv)
	}
	src := &topology.HCloudSource{
		Servers:      newServerLister(token),
		ClusterLabel: hc.ClusterLabel,
		Cluster:      hc.Cluster,
	}
	topo, err := src.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover nodes: %w", err)
	}
	return topo, nil
}

func isInteractiveTTY() bool {
	return logging.IsTerminal(stdout)
}
