// Package handler provides the HTTP request handlers for SecureStore.
//
//   - entries.go: store, retrieve, delete and exists on classified entries
//   - admin.go: stats, cleanup and the audit trail
//   - health.go: liveness and readiness
//
// Every JSON response uses the Response envelope. Engine errors are mapped
// to HTTP statuses by domain error code; underlying causes are logged and
// never sent to the client.
package handler
