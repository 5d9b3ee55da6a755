// Package memory provides a volatile in-process backend.
//
// Entries live in a sharded concurrent map and are lost on restart. The
// backend suits tests and single-process deployments that only need the
// engine's policy and audit behaviour.
package memory
