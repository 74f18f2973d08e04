package postgres

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// SubscriptionStore implements storage.SubscriptionStore using PostgreSQL.
type SubscriptionStore struct {
	pool *Pool
}

// NewSubscriptionStore creates a new SubscriptionStore.
func NewSubscriptionStore(pool *Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)

// Insert adds a new subscription. A partial unique index on
// (user_id, tracked_address) WHERE active maps a second live
// subscription for the same pair to ErrDuplicateKey.
func (s *SubscriptionStore) Insert(ctx context.Context, sub *domain.CopyTradeSubscription) error {
	query := `
		INSERT INTO copy_trade_subscriptions (id, user_id, tracked_address, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.TrackedAddress,
		sub.Active,
		sub.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// CountActiveByUser returns the number of active subscriptions a user holds.
func (s *SubscriptionStore) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM copy_trade_subscriptions
		WHERE user_id = $1 AND active
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return count, nil
}

// GetActive retrieves all active subscriptions.
func (s *SubscriptionStore) GetActive(ctx context.Context) ([]*domain.CopyTradeSubscription, error) {
	query := `
		SELECT id, user_id, tracked_address, active, created_at
		FROM copy_trade_subscriptions
		WHERE active
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.CopyTradeSubscription
	for rows.Next() {
		var sub domain.CopyTradeSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.TrackedAddress, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}
	return subs, nil
}

// Deactivate marks a subscription inactive.
func (s *SubscriptionStore) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE copy_trade_subscriptions
		SET active = FALSE
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
