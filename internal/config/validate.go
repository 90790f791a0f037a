package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for errors and returns the first one found.
func (c *Config) Validate() error {
	if err := c.validateInventory(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	if c.SSH.PrivateKeyPath == "" {
		return fmt.Errorf("ssh.private_key_path is required")
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is out of range", c.SSH.Port)
	}
	if c.SSH.ConnectRetries != nil && *c.SSH.ConnectRetries < 0 {
		return fmt.Errorf("ssh.connect_retries must not be negative")
	}

	if !strings.HasPrefix(c.Repository.File, "/") {
		return fmt.Errorf("repository.file must be an absolute path, got %q", c.Repository.File)
	}

	if err := validatePackageName("packages.tool", c.Packages.Tool); err != nil {
		return err
	}
	for i, name := range c.Packages.Node {
		if err := validatePackageName(fmt.Sprintf("packages.node[%d]", i), name); err != nil {
			return err
		}
	}

	if c.Drain.Timeout < 0 {
		return fmt.Errorf("drain.timeout must not be negative")
	}

	if c.Ready.Timeout == 0 {
		return fmt.Errorf("ready.timeout must not be zero; use a negative value to wait until cancelled")
	}
	if c.Ready.PollInterval <= 0 {
		return fmt.Errorf("ready.poll_interval must be positive")
	}
	switch c.Ready.OnTimeout {
	case TimeoutAbort, TimeoutWarn:
	default:
		return fmt.Errorf("ready.on_timeout must be %q or %q, got %q", TimeoutAbort, TimeoutWarn, c.Ready.OnTimeout)
	}

	return nil
}

func (c *Config) validateInventory() error {
	hasFile := c.Inventory.File != ""
	hasCloud := c.Inventory.HCloud != nil

	switch {
	case hasFile && hasCloud:
		return fmt.Errorf("file and hcloud are mutually exclusive")
	case !hasFile && !hasCloud:
		return fmt.Errorf("one of file or hcloud is required")
	case hasCloud && c.Inventory.HCloud.Cluster == "":
		return fmt.Errorf("hcloud.cluster is required")
	}
	return nil
}

// validatePackageName rejects names apt would not accept, which also keeps
// them safe to splice into remote commands.
func validatePackageName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '+' || r == '.') {
			return fmt.Errorf("%s %q contains invalid character %q", field, name, r)
		}
	}
	return nil
}
