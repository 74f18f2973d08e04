package memory

import (
	"context"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.User // keyed by user ID
	byCode map[string]int64       // referral code -> user ID
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		data:   make(map[int64]*domain.User),
		byCode: make(map[string]int64),
	}
}

// CreateIfNotExists inserts the user if absent.
func (s *UserStore) CreateIfNotExists(_ context.Context, u *domain.User) (bool, error) {
	if u == nil || u.ID == 0 {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[u.ID]; exists {
		return false, nil
	}

	// Store a copy to prevent external mutation
	userCopy := *u
	userCopy.EncryptedKey = append([]byte(nil), u.EncryptedKey...)
	s.data[u.ID] = &userCopy
	if u.ReferralCode != "" {
		s.byCode[u.ReferralCode] = u.ID
	}
	return true, nil
}

// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(_ context.Context, userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.data[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyUser(u), nil
}

// GetByReferralCode retrieves the user owning a referral code.
func (s *UserStore) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byCode[code]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyUser(s.data[id]), nil
}

// UpdateWallet stores the wallet address and encrypted key for a user.
func (s *UserStore) UpdateWallet(_ context.Context, userID int64, address string, encryptedKey []byte) error {
	if address == "" || len(encryptedKey) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.data[userID]
	if !exists {
		return storage.ErrNotFound
	}

	u.WalletAddress = address
	u.EncryptedKey = append([]byte(nil), encryptedKey...)
	return nil
}

// AddReferralEarnings atomically increments a user's earned referral balance.
func (s *UserStore) AddReferralEarnings(_ context.Context, userID int64, lamports uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.data[userID]
	if !exists {
		return storage.ErrNotFound
	}

	u.ReferralEarned += lamports
	return nil
}

func copyUser(u *domain.User) *domain.User {
	userCopy := *u
	userCopy.EncryptedKey = append([]byte(nil), u.EncryptedKey...)
	return &userCopy
}

// Verify interface compliance at compile time.
var _ storage.UserStore = (*UserStore)(nil)
