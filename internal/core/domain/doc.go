// Package domain defines the core domain models for SecureStore.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Classification: sensitivity tiers and the protection policy table
//   - Envelope: the persisted record shape and its JSON wire format
//   - AuditRecord: immutable entries of the operation history
//   - Errors: the structured error catalog
package domain
