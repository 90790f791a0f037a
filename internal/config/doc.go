// Package config defines the configuration model for a rolling upgrade run.
//
// A [Config] is loaded once from YAML, completed with defaults, validated,
// and then passed by pointer to every component that needs it. Nothing
// mutates it after [LoadFile] returns. Timeouts can be overridden through
// environment variables (see [ApplyEnvOverrides]).
package config
