package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Override changes a loaded configuration before it is validated.
type Override func(*Config)

// WithInventoryFile replaces the configured inventory with a text inventory file.
func WithInventoryFile(path string) Override {
	return func(c *Config) {
		c.Inventory.File = path
		c.Inventory.HCloud = nil
	}
}

// LoadFile reads, defaults, overrides and validates the configuration at path.
func LoadFile(path string, overrides ...Override) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Relative inventory paths are relative to the config file.
	if cfg.Inventory.File != "" && !filepath.IsAbs(cfg.Inventory.File) {
		cfg.Inventory.File = filepath.Join(filepath.Dir(path), cfg.Inventory.File)
	}

	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML into a Config, applies defaults and environment overrides.
// Unknown keys are rejected. The result is not validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindConfigFile returns DefaultConfigFilename in the working directory if it exists.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, DefaultConfigFilename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
	}
	return path, nil
}
