package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// CreateIfNotExists inserts the user if absent. Returns true when a new
// row was created.
func (s *UserStore) CreateIfNotExists(ctx context.Context, u *domain.User) (bool, error) {
	query := `
		INSERT INTO users (id, wallet_address, encrypted_key, referral_code, referral_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		u.ID,
		u.WalletAddress,
		u.EncryptedKey,
		u.ReferralCode,
		int64(u.ReferralEarned),
		u.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `
		SELECT id, wallet_address, encrypted_key, referral_code, referral_earned, created_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.pool.QueryRow(ctx, query, userID))
}

// GetByReferralCode retrieves the user owning a referral code.
func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	query := `
		SELECT id, wallet_address, encrypted_key, referral_code, referral_earned, created_at
		FROM users
		WHERE referral_code = $1
	`
	return s.scanUser(s.pool.QueryRow(ctx, query, code))
}

// UpdateWallet stores the wallet address and encrypted key for a user.
func (s *UserStore) UpdateWallet(ctx context.Context, userID int64, address string, encryptedKey []byte) error {
	query := `
		UPDATE users
		SET wallet_address = $2, encrypted_key = $3
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, userID, address, encryptedKey)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddReferralEarnings atomically increments a user's earned referral balance.
func (s *UserStore) AddReferralEarnings(ctx context.Context, userID int64, lamports uint64) error {
	query := `
		UPDATE users
		SET referral_earned = referral_earned + $2
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, userID, int64(lamports))
	if err != nil {
		return fmt.Errorf("add referral earnings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanUser scans a single user row.
func (s *UserStore) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var earned int64

	err := row.Scan(
		&u.ID,
		&u.WalletAddress,
		&u.EncryptedKey,
		&u.ReferralCode,
		&earned,
		&u.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.ReferralEarned = uint64(earned)
	return &u, nil
}
