// Package adaptive provides the AEAD primitives used by SecureStore.
//
// Ciphers work in detached mode: Seal returns the ciphertext and the
// authentication tag separately so that both can be persisted as
// independent fields of an encryption bundle.
//
// Supported Algorithms:
//
//   - AES-256-GCM: 96-bit nonce, 128-bit tag (96-bit configurable)
//   - ChaCha20-Poly1305: 96-bit nonce, 128-bit tag
//
// Callers own nonce generation through NewNonce. A nonce must never be
// reused with the same key.
//
// Usage:
//
//	c, err := adaptive.New(adaptive.AES256GCM, key, 16)
//	nonce, err := adaptive.NewNonce(c)
//	ct, tag, err := c.Seal(nonce, plaintext, aad)
//	pt, err := c.Open(nonce, ct, tag, aad)
package adaptive
