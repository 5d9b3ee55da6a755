package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"
)

// Algorithm identifies the AEAD construction.
type Algorithm string

const (
	AES256GCM        Algorithm = "AES-256-GCM"
	ChaCha20Poly1305 Algorithm = "ChaCha20-Poly1305"
)

// KeySize is the key length in bytes for every supported algorithm.
const KeySize = 32

// Tag sizes in bytes.
const (
	TagSize128 = 16
	TagSize96  = 12
)

var (
	// ErrOpen is returned by Open for any authentication failure.
	ErrOpen = errors.New("adaptive: message authentication failed")

	// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
	ErrUnknownAlgorithm = errors.New("adaptive: unknown algorithm")
)

// Cipher provides detached authenticated encryption.
type Cipher interface {
	// Algorithm returns the algorithm name recorded in bundles.
	Algorithm() Algorithm

	// Seal encrypts plaintext and returns ciphertext and tag separately.
	Seal(nonce, plaintext, additionalData []byte) (ciphertext, tag []byte, err error)

	// Open verifies tag and decrypts ciphertext.
	Open(nonce, ciphertext, tag, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// TagSize returns the authentication tag size in bytes.
	TagSize() int
}

// New creates a cipher for the given algorithm.
func New(alg Algorithm, key []byte, tagSize int) (Cipher, error) {
	switch alg {
	case AES256GCM:
		return NewAESGCM(key, tagSize)
	case ChaCha20Poly1305:
		if tagSize != TagSize128 {
			return nil, fmt.Errorf("adaptive: %s requires a %d byte tag", alg, TagSize128)
		}
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// ParseAlgorithm validates an algorithm name. "auto" selects Preferred().
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AES256GCM, ChaCha20Poly1305:
		return Algorithm(s), nil
	case "auto", "":
		return Preferred(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Preferred returns the algorithm best suited to the host CPU.
// Go uses AES-NI on amd64 and the ARMv8 crypto extensions on arm64.
func Preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return AES256GCM
	default:
		return ChaCha20Poly1305
	}
}

// NewNonce returns a fresh random nonce sized for c.
func NewNonce(c Cipher) ([]byte, error) {
	nonce := make([]byte, c.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: read nonce: %w", err)
	}
	return nonce, nil
}

// detached adapts a cipher.AEAD to the Cipher interface.
type detached struct {
	aead cipher.AEAD
	alg  Algorithm
}

func (c *detached) Algorithm() Algorithm { return c.alg }

func (c *detached) NonceSize() int { return c.aead.NonceSize() }

func (c *detached) TagSize() int { return c.aead.Overhead() }

func (c *detached) Seal(nonce, plaintext, additionalData []byte) ([]byte, []byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, nil, fmt.Errorf("adaptive: nonce must be %d bytes", c.aead.NonceSize())
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, additionalData)
	split := len(sealed) - c.aead.Overhead()
	return sealed[:split:split], sealed[split:], nil
}

func (c *detached) Open(nonce, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() || len(tag) != c.aead.Overhead() {
		return nil, ErrOpen
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
