package config

import "time"

// DefaultConfigFilename is the configuration file looked up when no path is given.
const DefaultConfigFilename = "kuberoll.yaml"

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultRepositoryFile     = "/etc/apt/sources.list.d/kubernetes.list"
	DefaultUpgradeTool        = "kubeadm"
	DefaultKubeletService     = "kubelet"
	DefaultRuntimeService     = "containerd"
	DefaultSSHUser            = "root"
	DefaultSSHPort            = 22
	DefaultSSHDialTimeout     = 10 * time.Second
	DefaultSSHConnectRetries  = 5
	DefaultSSHRetryDelay      = 2 * time.Second
	DefaultDrainTimeout       = 5 * time.Minute
	DefaultDrainGracePeriod   = -1
	DefaultReadyPollInterval  = 10 * time.Second
	DefaultReadyTimeout       = 15 * time.Minute
	DefaultMetricsJob         = "kuberoll"
	DefaultHCloudTokenEnv     = "HCLOUD_TOKEN"
	DefaultHCloudClusterLabel = "cluster"
)

// DefaultNodePackages are the packages pinned to the target version on every node
// in addition to the upgrade tool.
var DefaultNodePackages = []string{"kubelet", "kubectl"}

// TimeoutAction decides what happens when a node does not report Ready in time.
type TimeoutAction string

const (
	// TimeoutAbort aborts the run with a WaitReadyError.
	TimeoutAbort TimeoutAction = "abort"
	// TimeoutWarn logs the timeout and moves on to the next node.
	TimeoutWarn TimeoutAction = "warn"
)

// Config is the complete configuration of a run.
type Config struct {
	// Kubeconfig is the path to the kubeconfig used for the cluster control API.
	// Empty means the default loading rules (KUBECONFIG, ~/.kube/config).
	Kubeconfig string `yaml:"kubeconfig"`

	Inventory  InventoryConfig  `yaml:"inventory"`
	SSH        SSHConfig        `yaml:"ssh"`
	Repository RepositoryConfig `yaml:"repository"`
	Packages   PackagesConfig   `yaml:"packages"`
	Services   ServicesConfig   `yaml:"services"`
	Drain      DrainConfig      `yaml:"drain"`
	Ready      ReadyConfig      `yaml:"ready"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InventoryConfig selects where the node topology comes from.
// Exactly one of File or HCloud must be set.
type InventoryConfig struct {
	File   string        `yaml:"file"`
	HCloud *HCloudConfig `yaml:"hcloud"`
}

// HCloudConfig discovers nodes from Hetzner Cloud server labels.
type HCloudConfig struct {
	Cluster      string `yaml:"cluster"`
	ClusterLabel string `yaml:"cluster_label"`
	TokenEnv     string `yaml:"token_env"`
}

// SSHConfig configures the remote execution backend.
type SSHConfig struct {
	User           string        `yaml:"user"`
	Port           int           `yaml:"port"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	KnownHostsPath string        `yaml:"known_hosts_path"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	// ConnectRetries is the number of reconnect attempts after a failed dial.
	// Zero disables retries.
	ConnectRetries *int          `yaml:"connect_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	// Sudo prefixes privileged commands with "sudo -n".
	Sudo *bool `yaml:"sudo"`
}

// UseSudo reports whether privileged commands run through sudo. Defaults to true.
func (s SSHConfig) UseSudo() bool {
	return s.Sudo == nil || *s.Sudo
}

// RepositoryConfig points at the package source file whose channel is rewritten.
type RepositoryConfig struct {
	File string `yaml:"file"`
}

// PackagesConfig names the packages installed at the target version.
type PackagesConfig struct {
	// Tool is the upgrade tool package, used for version resolution.
	Tool string `yaml:"tool"`
	// Node are the node packages installed after the tool upgrade.
	Node []string `yaml:"node"`
}

// All returns the tool package followed by the node packages.
func (p PackagesConfig) All() []string {
	return append([]string{p.Tool}, p.Node...)
}

// ServicesConfig names the host services restarted after the package upgrade.
type ServicesConfig struct {
	Kubelet string `yaml:"kubelet"`
	Runtime string `yaml:"runtime"`
	// RestartRuntime restarts the container runtime. Failures are logged, never fatal.
	RestartRuntime bool `yaml:"restart_runtime"`
}

// DrainConfig is the eviction policy used before each node upgrade.
type DrainConfig struct {
	IgnoreDaemonSets   *bool         `yaml:"ignore_daemonsets"`
	DeleteEmptyDirData *bool         `yaml:"delete_emptydir_data"`
	Force              bool          `yaml:"force"`
	GracePeriodSeconds *int          `yaml:"grace_period_seconds"`
	Timeout            time.Duration `yaml:"timeout"`
}

// ReadyConfig bounds the wait for a node to report Ready after uncordon.
type ReadyConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// Timeout below zero waits until the run is cancelled.
	Timeout   time.Duration `yaml:"timeout"`
	OnTimeout TimeoutAction `yaml:"on_timeout"`
}

// MetricsConfig controls the optional export of run metrics.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.SSH.DialTimeout == 0 {
		c.SSH.DialTimeout = DefaultSSHDialTimeout
	}
	if c.SSH.ConnectRetries == nil {
		c.SSH.ConnectRetries = ptr(DefaultSSHConnectRetries)
	}
	if c.SSH.RetryDelay == 0 {
		c.SSH.RetryDelay = DefaultSSHRetryDelay
	}

	if c.Inventory.HCloud != nil {
		if c.Inventory.HCloud.ClusterLabel == "" {
			c.Inventory.HCloud.ClusterLabel = DefaultHCloudClusterLabel
		}
		if c.Inventory.HCloud.TokenEnv == "" {
			c.Inventory.HCloud.TokenEnv = DefaultHCloudTokenEnv
		}
	}

	if c.Repository.File == "" {
		c.Repository.File = DefaultRepositoryFile
	}

	if c.Packages.Tool == "" {
		c.Packages.Tool = DefaultUpgradeTool
	}
	if c.Packages.Node == nil {
		c.Packages.Node = append([]string(nil), DefaultNodePackages...)
	}

	if c.Services.Kubelet == "" {
		c.Services.Kubelet = DefaultKubeletService
	}
	if c.Services.Runtime == "" {
		c.Services.Runtime = DefaultRuntimeService
	}

	if c.Drain.IgnoreDaemonSets == nil {
		c.Drain.IgnoreDaemonSets = ptr(true)
	}
	if c.Drain.DeleteEmptyDirData == nil {
		c.Drain.DeleteEmptyDirData = ptr(true)
	}
	if c.Drain.GracePeriodSeconds == nil {
		c.Drain.GracePeriodSeconds = ptr(DefaultDrainGracePeriod)
	}
	if c.Drain.Timeout == 0 {
		c.Drain.Timeout = DefaultDrainTimeout
	}

	if c.Ready.PollInterval == 0 {
		c.Ready.PollInterval = DefaultReadyPollInterval
	}
	if c.Ready.Timeout == 0 {
		c.Ready.Timeout = DefaultReadyTimeout
	}
	if c.Ready.OnTimeout == "" {
		c.Ready.OnTimeout = TimeoutAbort
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
}

// Clone returns a deep copy of c. Changes to the copy, including through
// its slices and pointer fields, do not reach c.
func (c *Config) Clone() *Config {
	out := *c
	if c.Inventory.HCloud != nil {
		hc := *c.Inventory.HCloud
		out.Inventory.HCloud = &hc
	}
	if c.Packages.Node != nil {
		out.Packages.Node = append([]string(nil), c.Packages.Node...)
	}
	out.SSH.Sudo = clonePtr(c.SSH.Sudo)
	out.SSH.ConnectRetries = clonePtr(c.SSH.ConnectRetries)
	out.Drain.IgnoreDaemonSets = clonePtr(c.Drain.IgnoreDaemonSets)
	out.Drain.DeleteEmptyDirData = clonePtr(c.Drain.DeleteEmptyDirData)
	out.Drain.GracePeriodSeconds = clonePtr(c.Drain.GracePeriodSeconds)
	return &out
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
