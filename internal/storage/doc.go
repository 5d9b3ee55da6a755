// Package storage provides the persistent backends for SecureStore.
//
// Each backend implements service.Backend together with the optional
// service.KeyLister and service.SizeReporter capabilities:
//
//   - BadgerBackend: embedded LSM store with background value-log GC
//   - SQLiteBackend: single-table store on the pure Go SQLite driver
//   - memory.Store: volatile store for tests and ephemeral deployments
//
// Open selects a backend from Config.Engine.
package storage
