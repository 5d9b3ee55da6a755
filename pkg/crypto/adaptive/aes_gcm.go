package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESGCM implements AES-256-GCM with a configurable tag size.
type AESGCM struct {
	detached
}

// NewAESGCM creates an AES-256-GCM cipher.
//
// Key must be 32 bytes. tagSize must be TagSize128 or TagSize96.
func NewAESGCM(key []byte, tagSize int) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("adaptive: AES-256-GCM key must be %d bytes, got %d", KeySize, len(key))
	}
	if tagSize != TagSize128 && tagSize != TagSize96 {
		return nil, fmt.Errorf("adaptive: unsupported GCM tag size %d", tagSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCMWithTagSize(block, tagSize)
	if err != nil {
		return nil, err
	}

	return &AESGCM{detached{aead: aead, alg: AES256GCM}}, nil
}
