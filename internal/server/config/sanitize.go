package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging
// and for `config show`.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.DeviceSecret != "" {
		sanitized.Security.DeviceSecret = maskSecret(sanitized.Security.DeviceSecret)
	}
	if sanitized.Server.HTTP.APIToken != "" {
		sanitized.Server.HTTP.APIToken = maskSecret(sanitized.Server.HTTP.APIToken)
	}

	return &sanitized
}

// maskSecret keeps the first and last two characters of long values.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
