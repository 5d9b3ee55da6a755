package domain

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Algorithm names recorded in encryption bundles.
const (
	AlgorithmAES256GCM        = "AES-256-GCM"
	AlgorithmChaCha20Poly1305 = "ChaCha20-Poly1305"
)

// EncryptionResult is the self-describing output of one encryption.
//
// Binary fields are base64 encoded on the wire. Checksum is the hex
// SHA-256 of Ciphertext.
type EncryptionResult struct {
	Ciphertext []byte `json:"encryptedData"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"authTag"`
	Salt       []byte `json:"salt"`
	Algorithm  string `json:"algorithm"`
	Timestamp  int64  `json:"timestamp"`
	Checksum   string `json:"checksum"`
}

// PayloadKind tags which variant a Payload holds.
type PayloadKind uint8

const (
	payloadUnset PayloadKind = iota
	PayloadPlain
	PayloadEncrypted
)

// Payload is either the serialized plaintext or an encryption bundle.
// On the wire a plain payload is a JSON string and an encrypted one is
// a JSON object.
type Payload struct {
	Kind      PayloadKind
	Plain     string
	Encrypted *EncryptionResult
}

// PlainPayload wraps serialized plaintext.
func PlainPayload(s string) Payload {
	return Payload{Kind: PayloadPlain, Plain: s}
}

// EncryptedPayload wraps an encryption bundle.
func EncryptedPayload(r *EncryptionResult) Payload {
	return Payload{Kind: PayloadEncrypted, Encrypted: r}
}

// IsEncrypted reports whether the payload holds ciphertext.
func (p Payload) IsEncrypted() bool {
	return p.Kind == PayloadEncrypted
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadPlain:
		return json.Marshal(p.Plain)
	case PayloadEncrypted:
		if p.Encrypted == nil {
			return nil, fmt.Errorf("encrypted payload without bundle")
		}
		return json.Marshal(p.Encrypted)
	default:
		return nil, fmt.Errorf("payload kind not set")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PlainPayload(s)
		return nil
	case '{':
		var r EncryptionResult
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*p = EncryptedPayload(&r)
		return nil
	default:
		return fmt.Errorf("payload must be a string or an object")
	}
}

// Envelope is the unit persisted in the backend for one logical key.
//
// Timestamps are Unix milliseconds. Checksum is the hex SHA-256 of the
// serialized value before any encryption; it is verified on every read
// independently of the cipher's own checksum.
type Envelope struct {
	Classification Classification `json:"classification"`
	Payload        Payload        `json:"payload"`
	CreatedAt      int64          `json:"createdAt"`
	UpdatedAt      int64          `json:"updatedAt"`
	ExpiresAt      *int64         `json:"expiresAt"`
	AccessCount    uint64         `json:"accessCount"`
	Checksum       string         `json:"checksum"`

	// RequireStrongAuth records a caller's explicit request for
	// authenticated backend storage so that rewrites keep it.
	RequireStrongAuth bool `json:"requireStrongAuth,omitempty"`
}

// NewEnvelope assembles a fresh envelope. A zero ttl means no expiry.
func NewEnvelope(c Classification, payload Payload, checksum string, now time.Time, ttl time.Duration) *Envelope {
	ts := now.UnixMilli()
	env := &Envelope{
		Classification: c,
		Payload:        payload,
		CreatedAt:      ts,
		UpdatedAt:      ts,
		Checksum:       checksum,
	}
	if ttl > 0 {
		exp := now.Add(ttl).UnixMilli()
		env.ExpiresAt = &exp
	}
	return env
}

// IsExpired reports whether the envelope has an expiry at or before now.
func (e *Envelope) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && *e.ExpiresAt <= now.UnixMilli()
}

// Touch records a successful read.
func (e *Envelope) Touch(now time.Time) {
	e.AccessCount++
	e.UpdatedAt = now.UnixMilli()
}

// Marshal encodes the envelope to its wire format.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes and structurally validates a persisted envelope.
// Any problem is reported as ErrEnvelopeMalformed.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrEnvelopeMalformed.WithCause(err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Envelope) validate() error {
	if !e.Classification.Valid() {
		return ErrEnvelopeMalformed.WithDetails("invalid classification")
	}
	if e.Payload.Kind == payloadUnset {
		return ErrEnvelopeMalformed.WithDetails("missing payload")
	}
	if e.Payload.Kind == PayloadEncrypted && e.Payload.Encrypted == nil {
		return ErrEnvelopeMalformed.WithDetails("missing encryption bundle")
	}
	if e.CreatedAt <= 0 || e.UpdatedAt < e.CreatedAt {
		return ErrEnvelopeMalformed.WithDetails("invalid timestamps")
	}
	if sum, err := hex.DecodeString(e.Checksum); err != nil || len(sum) != 32 {
		return ErrEnvelopeMalformed.WithDetails("invalid checksum")
	}
	return nil
}
