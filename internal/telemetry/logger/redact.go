package logger

import (
	"log/slog"
	"strings"
)

// apiTokenPrefix marks SecureStore API tokens. Values carrying it are
// partially masked wherever they appear.
const apiTokenPrefix = "ssk_"

var sensitiveValuePrefixes = []string{
	apiTokenPrefix,
	"Bearer ",
}

// Key names containing any of these are redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"plaintext",
	"ciphertext",
}

// Key names redacted only on an exact, case-insensitive match. Crypto
// material fields are short names that would over-match as substrings.
var sensitiveExactKeys = map[string]struct{}{
	"iv":       {},
	"salt":     {},
	"auth_tag": {},
	"authtag":  {},
	"value":    {},
}

const redactedValue = "***REDACTED***"

// redactSensitive masks values with a known token prefix and fully
// redacts non-empty values under sensitive key names. The slog handlers
// call it once per leaf attribute, inside groups too.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		for _, prefix := range sensitiveValuePrefixes {
			if strings.HasPrefix(s, prefix) {
				return slog.String(a.Key, maskValue(s, prefix))
			}
		}
		if s == "" {
			return a
		}
	}

	if sensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// maskValue keeps the prefix plus the first and last three characters.
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveExactKeys[lower]; ok {
		return true
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
