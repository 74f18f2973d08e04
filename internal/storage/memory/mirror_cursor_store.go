package memory

import (
	"context"
	"sync"

	"solana-trade-engine/internal/storage"
)

// MirrorCursorStore is an in-memory implementation of storage.MirrorCursorStore.
type MirrorCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string // tracked address -> last processed signature
}

// NewMirrorCursorStore creates a new in-memory mirror cursor store.
func NewMirrorCursorStore() *MirrorCursorStore {
	return &MirrorCursorStore{
		cursors: make(map[string]string),
	}
}

// GetCursor returns the last processed signature for a tracked address.
func (s *MirrorCursorStore) GetCursor(_ context.Context, trackedAddress string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.cursors[trackedAddress]
	if !exists {
		return "", storage.ErrNotFound
	}
	return sig, nil
}

// SetCursor saves the last processed signature for a tracked address.
func (s *MirrorCursorStore) SetCursor(_ context.Context, trackedAddress, signature string) error {
	if trackedAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[trackedAddress] = signature
	return nil
}

// Verify interface compliance at compile time.
var _ storage.MirrorCursorStore = (*MirrorCursorStore)(nil)
