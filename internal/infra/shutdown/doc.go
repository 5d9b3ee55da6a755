// Package shutdown coordinates graceful process termination.
//
// Components register named hooks as they start. On SIGINT, SIGTERM or
// an explicit Trigger the hooks run in reverse registration order under
// a shared deadline, so the HTTP server stops before the engine and the
// engine before the storage backend.
package shutdown
