package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// SubscriptionStore is an in-memory implementation of storage.SubscriptionStore.
type SubscriptionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CopyTradeSubscription // keyed by subscription ID
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		data: make(map[string]*domain.CopyTradeSubscription),
	}
}

// Insert adds a new subscription. Returns ErrDuplicateKey when the user
// already has an active subscription for the tracked address.
func (s *SubscriptionStore) Insert(_ context.Context, sub *domain.CopyTradeSubscription) error {
	if sub == nil || sub.ID == "" || sub.UserID == 0 || sub.TrackedAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sub.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.Active && existing.UserID == sub.UserID && existing.TrackedAddress == sub.TrackedAddress {
			return storage.ErrDuplicateKey
		}
	}

	subCopy := *sub
	s.data[sub.ID] = &subCopy
	return nil
}

// CountActiveByUser returns the number of active subscriptions a user holds.
func (s *SubscriptionStore) CountActiveByUser(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.data {
		if sub.Active && sub.UserID == userID {
			count++
		}
	}
	return count, nil
}

// GetActive retrieves all active subscriptions.
func (s *SubscriptionStore) GetActive(_ context.Context) ([]*domain.CopyTradeSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CopyTradeSubscription
	for _, sub := range s.data {
		if sub.Active {
			subCopy := *sub
			result = append(result, &subCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Deactivate marks a subscription inactive.
func (s *SubscriptionStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	sub.Active = false
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)
