package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// readinessProbeKey is never written. Reading it exercises the backend
// without touching entries.
const readinessProbeKey = "readiness-probe"

// Ping reports whether the backend answers reads.
func (s *StorageService) Ping(ctx context.Context) error {
	_, err := s.backend.Get(ctx, PhysicalKey(s.namespace, domain.Public, readinessProbeKey))
	if err == nil || errors.Is(err, domain.ErrEntryNotFound) {
		return nil
	}
	return domain.ErrStorageBackend.WithCause(err)
}

// RunCleanup calls CleanupExpired every interval until ctx ends. Sweep
// failures are logged and the loop continues.
func (s *StorageService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("expiry sweep failed", "error", err)
			}
		}
	}
}
