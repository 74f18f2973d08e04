// Package stub provides an in-memory PoolSource for tests.
package stub

import (
	"context"
	"sync"

	"solana-trade-engine/internal/discovery"
)

// PoolSource implements discovery.PoolSource for testing. Events pushed
// with Push are returned by the next Fetch.
type PoolSource struct {
	mu      sync.Mutex
	pending []*discovery.PoolEvent

	// FetchErr, when set, is returned by Fetch.
	FetchErr error

	FetchCalls int
}

// NewPoolSource creates a new stub pool source.
func NewPoolSource() *PoolSource {
	return &PoolSource{}
}

// Compile-time interface check.
var _ discovery.PoolSource = (*PoolSource)(nil)

// Push queues events for the next Fetch.
func (s *PoolSource) Push(events ...*discovery.PoolEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, events...)
}

// Fetch drains queued events.
func (s *PoolSource) Fetch(_ context.Context) ([]*discovery.PoolEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FetchCalls++

	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	out := s.pending
	s.pending = nil
	return out, nil
}

// Close is a no-op.
func (s *PoolSource) Close() error {
	return nil
}
