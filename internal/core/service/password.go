package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// MinDeviceSecretLength is the shortest accepted device secret, in bytes.
const MinDeviceSecretLength = 16

const devicePasswordInfo = "securestore/v1"

// DevicePassword derives the per-entry encryption password from a device
// secret held in a memguard enclave.
//
// The password for (key, classification) is
// base64(HKDF-SHA256(secret, salt=namespace, info="securestore/v1|class|key")).
type DevicePassword struct {
	secret    *memguard.Enclave
	namespace string
}

// NewDevicePassword seals secret into an enclave. The secret slice is
// wiped before returning.
func NewDevicePassword(secret []byte, namespace string) (*DevicePassword, error) {
	if len(secret) < MinDeviceSecretLength {
		memguard.WipeBytes(secret)
		return nil, domain.ErrConfig.WithDetails(fmt.Sprintf("device secret must be at least %d bytes", MinDeviceSecretLength))
	}
	enclave := memguard.NewEnclave(secret)
	memguard.WipeBytes(secret)
	return &DevicePassword{secret: enclave, namespace: namespace}, nil
}

// Derive returns the password for an entry. Callers wipe it after use.
func (p *DevicePassword) Derive(key string, c domain.Classification) ([]byte, error) {
	buf, err := p.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("open device secret: %w", err)
	}
	defer buf.Destroy()

	info := devicePasswordInfo + "|" + c.String() + "|" + key
	r := hkdf.New(sha256.New, buf.Bytes(), []byte(p.namespace), []byte(info))

	raw := make([]byte, sha256.Size)
	defer memguard.WipeBytes(raw)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("derive device password: %w", err)
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}
