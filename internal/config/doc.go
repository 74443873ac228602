// Package config loads and validates clipforge's TOML configuration.
//
// Configuration resolves from an explicit path, ~/.config/clipforge/
// config.toml, or a clipforge.toml in the working directory, in that order.
// Missing files fall back to defaults so the daemon can start with zero
// configuration.
package config
