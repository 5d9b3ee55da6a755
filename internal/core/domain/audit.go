package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Operation names recorded in the audit trail.
type Operation string

const (
	OpStore    Operation = "store"
	OpRetrieve Operation = "retrieve"
	OpDelete   Operation = "delete"
	OpExists   Operation = "exists"
	OpExpired  Operation = "expired"
)

// AuditRecord is one immutable entry of the operation history.
//
// Records carry the logical key and classification only. They never hold
// values, ciphertext, salts or derived material.
type AuditRecord struct {
	ID             string         `json:"id"`
	Operation      Operation      `json:"operation"`
	LogicalKey     string         `json:"key"`
	Classification Classification `json:"classification"`
	TimestampMs    int64          `json:"timestamp"`
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
}

// NewAuditRecord creates a record stamped with a fresh ULID.
func NewAuditRecord(op Operation, key string, c Classification, success bool, errText string, now time.Time) AuditRecord {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return AuditRecord{
		ID:             id.String(),
		Operation:      op,
		LogicalKey:     key,
		Classification: c,
		TimestampMs:    now.UnixMilli(),
		Success:        success,
		Error:          errText,
	}
}
