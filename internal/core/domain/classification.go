package domain

import (
	"fmt"
	"strings"
)

// Classification is the sensitivity tier of a stored entry.
// Values are ordered: a higher value is more sensitive.
type Classification int

const (
	Public Classification = iota
	Internal
	Confidential
	Secret
)

// Unclassified marks a request whose classification could not be parsed.
// It appears in audit records only and is never stored.
const Unclassified Classification = -1

// Classifications lists every tier in ascending sensitivity.
var Classifications = []Classification{Public, Internal, Confidential, Secret}

// String returns the lowercase wire name of the classification.
func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Confidential:
		return "confidential"
	case Secret:
		return "secret"
	case Unclassified:
		return "unclassified"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Valid reports whether c is one of the defined tiers.
func (c Classification) Valid() bool {
	return c >= Public && c <= Secret
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification parses a tier name case-insensitively.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "internal":
		return Internal, nil
	case "confidential":
		return Confidential, nil
	case "secret":
		return Secret, nil
	default:
		return Public, ErrInvalidClassification.WithDetails(fmt.Sprintf("unknown classification %q", s))
	}
}

// AccessLevel is the backend protection class an entry is stored with.
type AccessLevel string

const (
	AccessDevice    AccessLevel = "device"
	AccessUser      AccessLevel = "user"
	AccessBiometric AccessLevel = "biometric"
)

// SecurityLevel is the engine-wide hardening setting.
type SecurityLevel string

const (
	SecurityStandard SecurityLevel = "standard"
	SecurityHigh     SecurityLevel = "high"
	SecurityMaximum  SecurityLevel = "maximum"
)

// ParseSecurityLevel parses a security level name. Empty means standard.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch SecurityLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", SecurityStandard:
		return SecurityStandard, nil
	case SecurityHigh:
		return SecurityHigh, nil
	case SecurityMaximum:
		return SecurityMaximum, nil
	default:
		return SecurityStandard, ErrConfig.WithDetails(fmt.Sprintf("unknown security level %q", s))
	}
}
