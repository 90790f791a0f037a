package testing

import (
	"time"

	"github.com/imamik/kuberoll/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a ConfigBuilder with every default applied, a
// text inventory and a short readiness poll.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Default()
	cfg.Inventory.File = "hosts"
	cfg.SSH.PrivateKeyPath = "/keys/id_ed25519"
	cfg.Ready.PollInterval = time.Millisecond
	cfg.Ready.Timeout = 2 * time.Second
	return &ConfigBuilder{cfg: *cfg}
}

// WithReadyTimeout sets the readiness wait timeout.
func (b *ConfigBuilder) WithReadyTimeout(d time.Duration) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Ready.Timeout = d
	return nb
}

// WithOnTimeout sets the action taken when a node is not Ready in time.
func (b *ConfigBuilder) WithOnTimeout(action config.TimeoutAction) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Ready.OnTimeout = action
	return nb
}

// WithRestartRuntime enables the container runtime restart.
func (b *ConfigBuilder) WithRestartRuntime(runtime string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Services.RestartRuntime = true
	nb.cfg.Services.Runtime = runtime
	return nb
}

// WithNodePackages replaces the node packages.
func (b *ConfigBuilder) WithNodePackages(pkgs ...string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Packages.Node = append([]string(nil), pkgs...)
	return nb
}

// WithPushgateway enables the metrics push.
func (b *ConfigBuilder) WithPushgateway(url string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Metrics.PushgatewayURL = url
	return nb
}

// Build returns a copy of the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	return b.cfg.Clone()
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	return &ConfigBuilder{cfg: *b.cfg.Clone()}
}
