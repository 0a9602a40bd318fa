// Package config loads, normalizes, and validates podscribe's TOML
// configuration. Defaults are defined in defaults.go and the embedded
// sample_config.toml documents every knob.
package config
