package storage

import (
	"context"

	"solana-trade-engine/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// CreateIfNotExists inserts the user if absent. Returns true when a
	// new row was created, false when the user already existed.
	CreateIfNotExists(ctx context.Context, u *domain.User) (bool, error)

	// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, userID int64) (*domain.User, error)

	// GetByReferralCode retrieves the user owning a referral code.
	// Returns ErrNotFound if not exists.
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)

	// UpdateWallet stores the wallet address and encrypted key for a user.
	// Returns ErrNotFound if the user does not exist.
	UpdateWallet(ctx context.Context, userID int64, address string, encryptedKey []byte) error

	// AddReferralEarnings atomically increments a user's earned referral
	// balance. Returns ErrNotFound if the user does not exist.
	AddReferralEarnings(ctx context.Context, userID int64, lamports uint64) error
}

// SnipeJobStore provides access to snipe_jobs storage.
type SnipeJobStore interface {
	// Insert adds a new job. Returns ErrDuplicateKey if job ID exists.
	Insert(ctx context.Context, job *domain.SnipeJob) error

	// GetByID retrieves a job by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, jobID string) (*domain.SnipeJob, error)

	// GetByUser retrieves all jobs for a user, newest first.
	GetByUser(ctx context.Context, userID int64) ([]*domain.SnipeJob, error)

	// GetActiveByTarget retrieves active jobs whose target matches the
	// mint, including wildcard jobs.
	GetActiveByTarget(ctx context.Context, mint string) ([]*domain.SnipeJob, error)

	// UpdateStatusIf atomically transitions a job from one status to
	// another. Returns false without error when the job is no longer in
	// the expected status. Returns ErrNotFound if the job does not exist.
	UpdateStatusIf(ctx context.Context, jobID string, from, to domain.SnipeJobStatus) (bool, error)

	// IncrementAttempts bumps the attempt counter and returns the new
	// value. Returns ErrNotFound if the job does not exist.
	IncrementAttempts(ctx context.Context, jobID string) (int, error)

	// SetTxSignature records the transaction signature of the executed
	// swap. Returns ErrNotFound if the job does not exist.
	SetTxSignature(ctx context.Context, jobID, signature string) error
}

// SubscriptionStore provides access to copy_trade_subscriptions storage.
type SubscriptionStore interface {
	// Insert adds a new subscription. Returns ErrDuplicateKey when the
	// user already has an active subscription for the tracked address.
	Insert(ctx context.Context, sub *domain.CopyTradeSubscription) error

	// CountActiveByUser returns the number of active subscriptions a
	// user holds.
	CountActiveByUser(ctx context.Context, userID int64) (int, error)

	// GetActive retrieves all active subscriptions.
	GetActive(ctx context.Context) ([]*domain.CopyTradeSubscription, error)

	// Deactivate marks a subscription inactive. Returns ErrNotFound if
	// the subscription does not exist.
	Deactivate(ctx context.Context, id string) error
}

// ReferralStore provides access to referral_links and referral_credits.
type ReferralStore interface {
	// CreateLink records a referrer/referee relationship. Returns
	// ErrDuplicateKey when the referee is already linked; a referee is
	// linked at most once, ever.
	CreateLink(ctx context.Context, link *domain.ReferralLink) error

	// GetByReferee retrieves the link for a referee. Returns ErrNotFound
	// if the referee has no referrer.
	GetByReferee(ctx context.Context, refereeID int64) (*domain.ReferralLink, error)

	// CreditOnce records a referral credit keyed by swap signature and
	// adds it to both the link's earned total and the referrer's accrued
	// balance as one atomic step: a failed credit applies nothing and may
	// be retried. Returns false without error when the signature was
	// already credited.
	CreditOnce(ctx context.Context, refereeID int64, swapSignature string, lamports uint64) (bool, error)
}

// FillStore appends executed swap fills to the analytics store.
// Best-effort: callers must never fail a swap on a fill write error.
type FillStore interface {
	InsertFill(ctx context.Context, rec *domain.SwapRecord) error
}

// SwapRecordStore provides access to swap_records storage.
type SwapRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the
	// transaction signature exists.
	Insert(ctx context.Context, rec *domain.SwapRecord) error

	// GetBySignature retrieves a record by transaction signature.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error)

	// GetByUser retrieves records for a user, newest first, capped at
	// limit (0 means no cap).
	GetByUser(ctx context.Context, userID int64, limit int) ([]*domain.SwapRecord, error)
}
