package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// ReferralStore implements storage.ReferralStore using PostgreSQL.
// Links live in referral_links; credited swap signatures in
// referral_credits, which makes CreditOnce idempotent.
type ReferralStore struct {
	pool *Pool
}

// NewReferralStore creates a new ReferralStore.
func NewReferralStore(pool *Pool) *ReferralStore {
	return &ReferralStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReferralStore = (*ReferralStore)(nil)

// CreateLink records a referrer/referee relationship. A referee is
// linked at most once, ever.
func (s *ReferralStore) CreateLink(ctx context.Context, link *domain.ReferralLink) error {
	if link == nil || link.ReferrerID == 0 || link.RefereeID == 0 || link.ReferrerID == link.RefereeID {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO referral_links (referee_id, referrer_id, earned_lamports, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		link.RefereeID,
		link.ReferrerID,
		int64(link.EarnedLamports),
		link.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert referral link: %w", err)
	}
	return nil
}

// GetByReferee retrieves the link for a referee.
func (s *ReferralStore) GetByReferee(ctx context.Context, refereeID int64) (*domain.ReferralLink, error) {
	query := `
		SELECT referee_id, referrer_id, earned_lamports, created_at
		FROM referral_links
		WHERE referee_id = $1
	`

	var link domain.ReferralLink
	var earned int64
	err := s.pool.QueryRow(ctx, query, refereeID).Scan(
		&link.RefereeID,
		&link.ReferrerID,
		&earned,
		&link.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get referral link: %w", err)
	}

	link.EarnedLamports = uint64(earned)
	return &link, nil
}

// CreditOnce records a referral credit keyed by swap signature and adds
// it to the link's earned total and the referrer's accrued balance. All
// three writes commit together, so a failed credit leaves no trace and
// can be retried in full.
func (s *ReferralStore) CreditOnce(ctx context.Context, refereeID int64, swapSignature string, lamports uint64) (credited bool, err error) {
	if swapSignature == "" {
		return false, storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "credit_once", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var referrerID int64
	err = tx.QueryRow(ctx, `SELECT referrer_id FROM referral_links WHERE referee_id = $1`, refereeID).Scan(&referrerID)
	if err != nil {
		if isNotFoundError(err) {
			return false, storage.ErrNotFound
		}
		return false, fmt.Errorf("lookup referral link: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO referral_credits (swap_signature, referee_id, lamports, credited_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (swap_signature) DO NOTHING
	`, swapSignature, refereeID, int64(lamports))
	if err != nil {
		return false, fmt.Errorf("insert referral credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already credited; nothing to commit.
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE referral_links
		SET earned_lamports = earned_lamports + $2
		WHERE referee_id = $1
	`, refereeID, int64(lamports))
	if err != nil {
		return false, fmt.Errorf("update referral link total: %w", err)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE users
		SET referral_earned = referral_earned + $2
		WHERE id = $1
	`, referrerID, int64(lamports))
	if err != nil {
		return false, fmt.Errorf("update referrer balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("referrer %d has no user row: %w", referrerID, storage.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit credit tx: %w", err)
	}
	return true, nil
}
