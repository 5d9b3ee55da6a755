// Package main provides the entry point for securestore-cli.
//
// The CLI talks to a securestore-server over HTTP:
//
//   - entry put/get/delete/exists for classified values
//   - system health/stats/cleanup for operations
//   - audit list for the recent audit trail
//   - config validate/show for local server config files
//
// Usage:
//
//	securestore-cli --server localhost:5080 entry put secret db-password s3cr3t
//	securestore-cli -o json entry get secret db-password
//	securestore-cli config validate --config server.yaml
package main
