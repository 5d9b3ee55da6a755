// Package audit holds the bounded in-memory operation history.
package audit

import (
	"sync"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 500

// Log is a fixed-capacity ring buffer of audit records.
//
// Append is O(1); once full, each append overwrites the oldest record.
// Log is safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	buf   []domain.AuditRecord
	head  int // index of the oldest record
	count int
}

// New creates a Log holding at most capacity records.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]domain.AuditRecord, capacity)}
}

// Append adds a record, dropping the oldest one if the log is full.
func (l *Log) Append(rec domain.AuditRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = rec
		l.count++
		return
	}
	l.buf[l.head] = rec
	l.head = (l.head + 1) % len(l.buf)
}

// All returns a copy of the records, oldest first.
func (l *Log) All() []domain.AuditRecord {
	return l.Last(-1)
}

// Last returns a copy of the newest n records, oldest first.
// A negative n returns every record.
func (l *Log) Last(n int) []domain.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 || n > l.count {
		n = l.count
	}
	out := make([]domain.AuditRecord, n)
	start := l.head + l.count - n
	for i := range out {
		out[i] = l.buf[(start+i)%len(l.buf)]
	}
	return out
}

// Len returns the number of records held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Cap returns the maximum number of records held.
func (l *Log) Cap() int {
	return len(l.buf)
}
