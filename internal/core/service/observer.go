package service

import (
	"log/slog"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// Observer receives security-relevant engine events.
//
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	// OperationCompleted is called once per engine operation.
	OperationCompleted(op domain.Operation, c domain.Classification, success bool, elapsed time.Duration)

	// IntegrityFailure is called when a read fails verification.
	IntegrityFailure(key string, c domain.Classification)

	// KeyDerived is called after each key derivation.
	KeyDerived(elapsed time.Duration)

	// AuditSize is called after each audit append with the record count.
	AuditSize(n int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OperationCompleted(domain.Operation, domain.Classification, bool, time.Duration) {}
func (NopObserver) IntegrityFailure(string, domain.Classification)                                  {}
func (NopObserver) KeyDerived(time.Duration)                                                        {}
func (NopObserver) AuditSize(int)                                                                   {}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OperationCompleted(op domain.Operation, c domain.Classification, success bool, elapsed time.Duration) {
	for _, o := range m {
		o.OperationCompleted(op, c, success, elapsed)
	}
}

func (m MultiObserver) IntegrityFailure(key string, c domain.Classification) {
	for _, o := range m {
		o.IntegrityFailure(key, c)
	}
}

func (m MultiObserver) KeyDerived(elapsed time.Duration) {
	for _, o := range m {
		o.KeyDerived(elapsed)
	}
}

func (m MultiObserver) AuditSize(n int) {
	for _, o := range m {
		o.AuditSize(n)
	}
}

// LogObserver writes security events to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OperationCompleted(op domain.Operation, c domain.Classification, success bool, elapsed time.Duration) {
	o.Logger.Debug("operation completed",
		"operation", op,
		"classification", c,
		"success", success,
		"elapsed", elapsed)
}

// IntegrityFailure is a no-op: the engine logs integrity failures itself,
// with the failing stage.
func (o LogObserver) IntegrityFailure(string, domain.Classification) {}

func (o LogObserver) KeyDerived(time.Duration) {}

func (o LogObserver) AuditSize(int) {}
