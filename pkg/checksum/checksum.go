// Package checksum computes and verifies SHA-256 integrity digests.
//
// Digests are lowercase hex. Verification uses a constant-time compare.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Size is the length of a hex digest.
const Size = sha256.Size * 2

// Sum returns the hex SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether data hashes to expected.
func Verify(data []byte, expected string) bool {
	return Equal(Sum(data), expected)
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
