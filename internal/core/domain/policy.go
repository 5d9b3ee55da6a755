package domain

// Policy is the set of protections applied to one classification.
type Policy struct {
	RequireEncryption bool
	RequireStrongAuth bool
	AccessLevel       AccessLevel
}

// PolicyOptions carries the engine settings the policy table depends on.
type PolicyOptions struct {
	// DefaultEncryption decides whether Internal entries are encrypted.
	DefaultEncryption bool

	// SecurityLevel turns on strong authentication for Confidential
	// entries when set to SecurityMaximum.
	SecurityLevel SecurityLevel
}

// PolicyFor returns the protection policy for a classification.
//
// The table is fixed; it holds no state and is safe to call from any
// goroutine. Unknown classifications get the Secret policy so that a
// corrupted tier value never weakens protection.
func PolicyFor(c Classification, opts PolicyOptions) Policy {
	switch c {
	case Public:
		return Policy{AccessLevel: AccessDevice}
	case Internal:
		return Policy{
			RequireEncryption: opts.DefaultEncryption,
			AccessLevel:       AccessDevice,
		}
	case Confidential:
		return Policy{
			RequireEncryption: true,
			RequireStrongAuth: opts.SecurityLevel == SecurityMaximum,
			AccessLevel:       AccessUser,
		}
	default:
		return Policy{
			RequireEncryption: true,
			RequireStrongAuth: true,
			AccessLevel:       AccessBiometric,
		}
	}
}
