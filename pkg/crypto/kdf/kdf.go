// Package kdf derives symmetric keys from passwords with PBKDF2-HMAC-SHA256.
package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Parameter limits.
const (
	MinIterations     = 100_000
	DefaultIterations = 310_000
	MinKeyLengthBits  = 256
	MinSaltLength     = 16
	DefaultSaltLength = 32
)

// ErrInvalidParams is returned by New for parameters below the limits.
var ErrInvalidParams = errors.New("kdf: invalid parameters")

// Params configures a Deriver.
type Params struct {
	Iterations      int
	KeyLengthBits   int
	SaltLengthBytes int
}

// DefaultParams returns the recommended parameters.
func DefaultParams() Params {
	return Params{
		Iterations:      DefaultIterations,
		KeyLengthBits:   MinKeyLengthBits,
		SaltLengthBytes: DefaultSaltLength,
	}
}

// Validate checks p against the limits.
func (p Params) Validate() error {
	if p.Iterations < MinIterations {
		return fmt.Errorf("%w: iterations %d below minimum %d", ErrInvalidParams, p.Iterations, MinIterations)
	}
	if p.KeyLengthBits < MinKeyLengthBits || p.KeyLengthBits%8 != 0 {
		return fmt.Errorf("%w: key length %d bits, need a multiple of 8 and at least %d", ErrInvalidParams, p.KeyLengthBits, MinKeyLengthBits)
	}
	if p.SaltLengthBytes < MinSaltLength {
		return fmt.Errorf("%w: salt length %d below minimum %d", ErrInvalidParams, p.SaltLengthBytes, MinSaltLength)
	}
	return nil
}

// Deriver derives keys with fixed parameters. It is safe for concurrent use.
type Deriver struct {
	params Params
}

// New validates p and returns a Deriver. A zero SaltLengthBytes selects
// DefaultSaltLength.
func New(p Params) (*Deriver, error) {
	if p.SaltLengthBytes == 0 {
		p.SaltLengthBytes = DefaultSaltLength
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Deriver{params: p}, nil
}

// KeyLength returns the derived key length in bytes.
func (d *Deriver) KeyLength() int {
	return d.params.KeyLengthBits / 8
}

// NewSalt returns a fresh random salt of the configured length.
func (d *Deriver) NewSalt() ([]byte, error) {
	salt := make([]byte, d.params.SaltLengthBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("kdf: read salt: %w", err)
	}
	return salt, nil
}

// Derive stretches password into a key. When salt is nil a fresh random
// salt is generated. The salt actually used is returned with the key.
func (d *Deriver) Derive(password, salt []byte) (key, saltUsed []byte, err error) {
	if salt == nil {
		if salt, err = d.NewSalt(); err != nil {
			return nil, nil, err
		}
	} else if len(salt) < MinSaltLength {
		return nil, nil, fmt.Errorf("%w: salt length %d below minimum %d", ErrInvalidParams, len(salt), MinSaltLength)
	}

	return d.key(password, salt), salt, nil
}

func (d *Deriver) key(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, d.params.Iterations, d.KeyLength(), sha256.New)
}
