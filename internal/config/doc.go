// Package config defines the configuration for a link validation run:
// CLI-populated settings, defaults, validation, XDG directory resolution,
// and the optional .linkhound YAML file with per-site overrides.
package config
