// Package config loads, normalizes, and validates bbdrop configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// IMX_SESSION_COOKIE. The Config type centralizes every knob the daemon and
// CLI need, so data/artifact directories, host settings, and upload defaults
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
