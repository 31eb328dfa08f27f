// Package config loads and validates the TOML configuration shared by
// the daemon and the CLI. All path fields are expanded and normalized
// at load time; a missing config file yields the defaults.
package config
