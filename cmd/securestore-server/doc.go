// Package main provides the entry point for securestore-server.
//
// The server hosts the classified storage engine behind an HTTP API:
//
//   - /v1/entries for storing and reading classified values
//   - /admin/v1 for statistics, expiry sweeps and the audit trail
//   - /health, /ready and /metrics for operations
//
// Usage:
//
//	securestore-server --config /etc/securestore/server.yaml
//	securestore-server --version
//
// Settings may also come from SECURESTORE_ environment variables, with
// "__" separating nested keys (SECURESTORE_SECURITY__DEVICE_SECRET).
package main
