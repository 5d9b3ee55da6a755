// Package config provides the securestore-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation run before anything is opened
//   - sanitize.go: Masking of secrets for logging
//   - convert.go: Translation into engine and storage options
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SECURESTORE_ environment variables and command-line flags.
package config
