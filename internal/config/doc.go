// Package config loads, validates, and normalizes the TOML configuration
// used by the mocoscribe CLI.
package config
