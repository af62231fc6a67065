package memory

import (
	"context"
	"sync"

	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/ports"
)

// InvocationLog is an in-memory implementation of ports.InvocationLog.
// It keeps at most capacity records, dropping the oldest.
type InvocationLog struct {
	mu       sync.RWMutex
	records  []invocation.Record
	capacity int
}

// NewInvocationLog creates a log. capacity <= 0 means 10000.
func NewInvocationLog(capacity int) *InvocationLog {
	if capacity <= 0 {
		capacity = 10000
	}
	return &InvocationLog{capacity: capacity}
}

// Append records a finished invocation.
func (l *InvocationLog) Append(ctx context.Context, r invocation.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) >= l.capacity {
		// Drop the oldest in bulk to amortize the copy.
		drop := len(l.records) - l.capacity + 1
		if extra := l.capacity / 10; drop < extra {
			drop = extra
		}
		l.records = append(l.records[:0], l.records[drop:]...)
	}
	l.records = append(l.records, r)
	return nil
}

// List returns matching records, newest first.
func (l *InvocationLog) List(ctx context.Context, f invocation.Filter) ([]invocation.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return invocation.Select(l.records, f), nil
}

// Len returns the number of stored records.
func (l *InvocationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Ensure interface compliance.
var _ ports.InvocationLog = (*InvocationLog)(nil)
