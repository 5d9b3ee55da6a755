// Package logger builds the structured loggers SecureStore components
// share.
//
// New returns a plain *slog.Logger whose handler redacts passwords,
// device secrets, API tokens and crypto material (iv, salt, auth_tag),
// and adds the request ID carried by the logging context. All loggers
// share one level, changed at runtime with SetLevel.
package logger
