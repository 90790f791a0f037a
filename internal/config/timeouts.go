package config

import (
	"fmt"
	"os"
	"time"
)

// Environment variables that override timeouts from the config file.
const (
	EnvDrainTimeout      = "KUBEROLL_TIMEOUT_DRAIN"
	EnvReadyTimeout      = "KUBEROLL_TIMEOUT_READY"
	EnvReadyPollInterval = "KUBEROLL_READY_POLL_INTERVAL"
	EnvSSHDialTimeout    = "KUBEROLL_SSH_DIAL_TIMEOUT"
)

// ApplyEnvOverrides replaces timeouts with values from the environment.
//
// Environment Variables:
//   - KUBEROLL_TIMEOUT_DRAIN
//   - KUBEROLL_TIMEOUT_READY
//   - KUBEROLL_READY_POLL_INTERVAL
//   - KUBEROLL_SSH_DIAL_TIMEOUT
//
// Unlike the file, a malformed value is an error rather than silently ignored.
func ApplyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		env    string
		target *time.Duration
	}{
		{EnvDrainTimeout, &cfg.Drain.Timeout},
		{EnvReadyTimeout, &cfg.Ready.Timeout},
		{EnvReadyPollInterval, &cfg.Ready.PollInterval},
		{EnvSSHDialTimeout, &cfg.SSH.DialTimeout},
	}

	for _, o := range overrides {
		d, ok, err := parseDuration(o.env)
		if err != nil {
			return err
		}
		if ok {
			*o.target = d
		}
	}
	return nil
}

// parseDuration reads a duration from envVar. ok is false when the variable is unset.
func parseDuration(envVar string) (d time.Duration, ok bool, err error) {
	val := os.Getenv(envVar)
	if val == "" {
		return 0, false, nil
	}

	d, err = time.ParseDuration(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", envVar, val, err)
	}
	return d, true, nil
}
