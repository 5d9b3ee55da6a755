package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/pkg/checksum"
	"github.com/yndnr/securestore-go/pkg/crypto/adaptive"
	"github.com/yndnr/securestore-go/pkg/crypto/kdf"
)

// MinPasswordLength is the shortest password Encrypt accepts, in bytes.
const MinPasswordLength = 8

// CipherOptions configures a CipherService.
type CipherOptions struct {
	// Algorithm is the AEAD used for new bundles.
	Algorithm adaptive.Algorithm

	// KDF holds the PBKDF2 parameters.
	KDF kdf.Params

	// TagLengthBits is 128 or 96. ChaCha20-Poly1305 requires 128.
	TagLengthBits int
}

// DefaultCipherOptions returns AES-256-GCM with a 128-bit tag and the
// default PBKDF2 parameters.
func DefaultCipherOptions() CipherOptions {
	return CipherOptions{
		Algorithm:     adaptive.AES256GCM,
		KDF:           kdf.DefaultParams(),
		TagLengthBits: 128,
	}
}

// DecryptResult is the outcome of Decrypt.
//
// When Verified is false Plaintext is nil. The reason is never reported.
type DecryptResult struct {
	Plaintext []byte
	Verified  bool
}

// CipherService encrypts values under password-derived keys.
//
// Every Encrypt draws a fresh salt and a fresh nonce, so a (key, nonce)
// pair is never reused. Derived keys are wiped after use and never cached.
type CipherService struct {
	alg     adaptive.Algorithm
	tagSize int
	deriver *kdf.Deriver
	pool    *WorkPool
	obs     Observer
}

// NewCipherService validates opts and builds a CipherService.
// Invalid options are reported as domain.ErrConfig.
func NewCipherService(opts CipherOptions, pool *WorkPool, obs Observer) (*CipherService, error) {
	deriver, err := kdf.New(opts.KDF)
	if err != nil {
		return nil, domain.ErrConfig.WithDetails(err.Error())
	}
	if deriver.KeyLength() != adaptive.KeySize {
		return nil, domain.ErrConfig.WithDetails(fmt.Sprintf("%s needs a %d-bit key", opts.Algorithm, adaptive.KeySize*8))
	}

	tagSize := opts.TagLengthBits / 8
	if opts.TagLengthBits%8 != 0 {
		tagSize = 0
	}
	// Probe the construction once so misconfiguration fails here.
	if _, err := adaptive.New(opts.Algorithm, make([]byte, adaptive.KeySize), tagSize); err != nil {
		return nil, domain.ErrConfig.WithDetails(err.Error())
	}

	if pool == nil {
		pool = NewWorkPool(0)
	}
	if obs == nil {
		obs = NopObserver{}
	}

	return &CipherService{
		alg:     opts.Algorithm,
		tagSize: tagSize,
		deriver: deriver,
		pool:    pool,
		obs:     obs,
	}, nil
}

// Algorithm returns the algorithm used for new bundles.
func (s *CipherService) Algorithm() adaptive.Algorithm {
	return s.alg
}

type derivation struct {
	key  []byte
	salt []byte
	err  error
}

func (s *CipherService) derive(ctx context.Context, password, salt []byte) ([]byte, []byte, error) {
	start := time.Now()
	d, err := Run(ctx, s.pool, func() derivation {
		key, used, err := s.deriver.Derive(password, salt)
		return derivation{key: key, salt: used, err: err}
	}, func(d derivation) {
		memguard.WipeBytes(d.key)
	})
	if err != nil {
		return nil, nil, err
	}
	s.obs.KeyDerived(time.Since(start))
	return d.key, d.salt, d.err
}

// Encrypt seals plaintext under a key derived from password.
func (s *CipherService) Encrypt(ctx context.Context, plaintext, password []byte) (*domain.EncryptionResult, error) {
	if len(password) < MinPasswordLength {
		return nil, domain.ErrValidation.WithDetails(fmt.Sprintf("password must be at least %d bytes", MinPasswordLength))
	}
	if len(plaintext) == 0 {
		return nil, domain.ErrValidation.WithDetails("plaintext must not be empty")
	}

	key, salt, err := s.derive(ctx, password, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.ErrInternal.WithCause(err)
	}
	defer memguard.WipeBytes(key)

	aead, err := adaptive.New(s.alg, key, s.tagSize)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	nonce, err := adaptive.NewNonce(aead)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	ct, tag, err := aead.Seal(nonce, plaintext, nil)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}

	return &domain.EncryptionResult{
		Ciphertext: ct,
		IV:         nonce,
		AuthTag:    tag,
		Salt:       salt,
		Algorithm:  string(s.alg),
		Timestamp:  time.Now().UnixMilli(),
		Checksum:   checksum.Sum(ct),
	}, nil
}

var unverified = DecryptResult{}

// Decrypt opens bundle with a key derived from password.
//
// Structural problems, checksum mismatch, tag mismatch and a wrong
// password all yield the same unverified result with a nil error. The
// only error returned is the context's, when ctx ends first.
func (s *CipherService) Decrypt(ctx context.Context, bundle *domain.EncryptionResult, password []byte) (DecryptResult, error) {
	aeadFor, ok := s.checkBundle(bundle)
	if !ok {
		return unverified, nil
	}
	// The ciphertext checksum is cheap; check it before paying for PBKDF2.
	if !checksum.Verify(bundle.Ciphertext, bundle.Checksum) {
		return unverified, nil
	}

	key, _, err := s.derive(ctx, password, bundle.Salt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return unverified, ctxErr
		}
		return unverified, nil
	}
	defer memguard.WipeBytes(key)

	aead, err := aeadFor(key)
	if err != nil {
		return unverified, nil
	}
	plaintext, err := aead.Open(bundle.IV, bundle.Ciphertext, bundle.AuthTag, nil)
	if err != nil {
		return unverified, nil
	}
	return DecryptResult{Plaintext: plaintext, Verified: true}, nil
}

// checkBundle validates the bundle's shape and returns a constructor for
// the cipher it was sealed with. Bundles written under a different
// configured algorithm stay readable; the tag must have the configured
// length, since a GCM tag truncated to 96 bits still verifies.
func (s *CipherService) checkBundle(b *domain.EncryptionResult) (func(key []byte) (adaptive.Cipher, error), bool) {
	if b == nil || len(b.Ciphertext) == 0 || len(b.Salt) < kdf.MinSaltLength || len(b.Checksum) != checksum.Size {
		return nil, false
	}

	alg, err := adaptive.ParseAlgorithm(b.Algorithm)
	if err != nil || string(alg) != b.Algorithm {
		return nil, false
	}
	tagSize := s.tagSize
	if len(b.AuthTag) != tagSize {
		return nil, false
	}
	if len(b.IV) != 12 {
		return nil, false
	}

	return func(key []byte) (adaptive.Cipher, error) {
		c, err := adaptive.New(alg, key, tagSize)
		if err != nil {
			return nil, errors.New("unsupported bundle parameters")
		}
		return c, nil
	}, true
}
