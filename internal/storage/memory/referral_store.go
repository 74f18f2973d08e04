package memory

import (
	"context"
	"fmt"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ReferralStore is an in-memory implementation of storage.ReferralStore.
// It holds the user store so a credit moves the link total and the
// referrer's accrued balance as one unit.
type ReferralStore struct {
	mu       sync.RWMutex
	users    *UserStore
	links    map[int64]*domain.ReferralLink // keyed by referee ID
	credited map[string]struct{}            // swap signatures already credited
}

// NewReferralStore creates a new in-memory referral store.
func NewReferralStore(users *UserStore) *ReferralStore {
	return &ReferralStore{
		users:    users,
		links:    make(map[int64]*domain.ReferralLink),
		credited: make(map[string]struct{}),
	}
}

// CreateLink records a referrer/referee relationship.
func (s *ReferralStore) CreateLink(_ context.Context, link *domain.ReferralLink) error {
	if link == nil || link.ReferrerID == 0 || link.RefereeID == 0 {
		return storage.ErrInvalidInput
	}
	if link.ReferrerID == link.RefereeID {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[link.RefereeID]; exists {
		return storage.ErrDuplicateKey
	}

	linkCopy := *link
	s.links[link.RefereeID] = &linkCopy
	return nil
}

// GetByReferee retrieves the link for a referee.
func (s *ReferralStore) GetByReferee(_ context.Context, refereeID int64) (*domain.ReferralLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.links[refereeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	linkCopy := *link
	return &linkCopy, nil
}

// CreditOnce records a referral credit keyed by swap signature, bumping
// the link total and the referrer's accrued balance together. The
// signature is marked credited only once both writes are guaranteed, so
// a failed credit can be retried in full.
func (s *ReferralStore) CreditOnce(ctx context.Context, refereeID int64, swapSignature string, lamports uint64) (bool, error) {
	if swapSignature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, exists := s.links[refereeID]
	if !exists {
		return false, storage.ErrNotFound
	}

	if _, done := s.credited[swapSignature]; done {
		return false, nil
	}

	if err := s.users.AddReferralEarnings(ctx, link.ReferrerID, lamports); err != nil {
		return false, fmt.Errorf("credit referrer %d: %w", link.ReferrerID, err)
	}

	s.credited[swapSignature] = struct{}{}
	link.EarnedLamports += lamports
	return true, nil
}

// Verify interface compliance at compile time.
var _ storage.ReferralStore = (*ReferralStore)(nil)
