package service

import (
	"context"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// PutOptions carries the protection attributes of a persisted entry.
type PutOptions struct {
	// RequireAuthentication asks the backend to gate reads behind user
	// presence where it supports that.
	RequireAuthentication bool

	// Namespace is the engine namespace the key belongs to.
	Namespace string

	// AccessLevel is the protection class derived from the entry's policy.
	AccessLevel domain.AccessLevel
}

// Backend is the opaque key-value store envelopes are persisted in.
//
// Get returns domain.ErrEntryNotFound for absent keys. Delete of an
// absent key is not an error. Writes are last-writer-wins.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by backends that can enumerate their keys.
type KeyLister interface {
	// ListKeys returns every stored key starting with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// SizeReporter is implemented by backends that can report disk usage.
type SizeReporter interface {
	// UsedBytes returns the space consumed by stored entries.
	UsedBytes(ctx context.Context) (int64, error)
}
