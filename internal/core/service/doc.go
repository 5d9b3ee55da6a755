// Package service provides the SecureStore engine.
//
// Services contain the business logic and define interfaces for their
// storage dependencies, allowing for dependency injection and testability.
//
// This package contains:
//
//   - CipherService: password-based authenticated encryption
//   - DevicePassword: per-entry password derivation from the device secret
//   - StorageService: classified store/retrieve with envelopes and audit
//   - WorkPool: bounded offload of key derivation
//
// One CipherService is owned per StorageService. No state is global.
package service
