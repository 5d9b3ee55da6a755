package storage

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/storage/memory"
)

// Backend is a service.Backend that owns resources released by Close.
type Backend interface {
	service.Backend
	io.Closer
}

// Open creates the backend named by cfg.Engine. When registry is non-nil,
// backends that export metrics register them there.
func Open(cfg Config, logger *slog.Logger, registry prometheus.Registerer) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage", "engine", cfg.Engine)

	switch cfg.Engine {
	case EngineBadger, "":
		b, err := NewBadgerBackend(cfg, logger)
		if err != nil {
			return nil, err
		}
		if registry != nil {
			b.RegisterMetrics(registry)
		}
		return b, nil
	case EngineSQLite:
		return NewSQLiteBackend(cfg, logger)
	case EngineMemory:
		logger.Warn("memory backend selected, entries will not survive a restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
