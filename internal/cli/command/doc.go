// Package command defines the securestore-cli commands using urfave/cli/v2.
//
//   - root.go: application, global flags, shared helpers
//   - entry.go: put, get, delete and exists on classified entries
//   - system.go: health, stats and cleanup
//   - audit.go: the server's audit trail
//   - config.go: local validation and display of a server config file
package command
