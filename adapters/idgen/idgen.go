// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/apphost/ports"
)

// UUID generates time-ordered UUIDv7 ids, so audit records and transition
// ids sort by creation.
type UUID struct{}

// New generates a new id. It falls back to a random v4 UUID if the v7
// generator fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Func adapts New for components that take a plain id function.
func (g UUID) Func() func() string {
	return g.New
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Func adapts New for components that take a plain id function.
func (s *Sequential) Func() func() string {
	return s.New
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
