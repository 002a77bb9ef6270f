// Package config loads, normalizes, and validates slidemill configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the SLIDEMILL_BASE_DIR and SLIDEMILL_LOG_LEVEL
// environment overrides. Relative project paths such as the captions file and
// the output directory are resolved against the project base directory so the
// CLI can be run from anywhere.
package config
