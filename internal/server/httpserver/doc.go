// Package httpserver provides the HTTP/HTTPS server for SecureStore.
//
// Endpoints:
//
//   - Entry endpoints: /v1/entries/{classification}/{key}[/exists]
//   - Admin endpoints: /admin/v1/stats, /admin/v1/cleanup, /admin/v1/audit
//   - Health endpoints: /health, /ready, /metrics
//
// Middleware: Recover, RequestID, AccessLog, RateLimit, Auth, MaxBody.
package httpserver
