// Package referral credits referrers with a share of their invitees'
// trading fees.
package referral

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// Ledger applies referral rewards against swap fees.
type Ledger struct {
	links         storage.ReferralStore
	rate          float64
	notifications *notify.Dispatcher
	logger        *log.Logger
}

// Options configures the Ledger.
type Options struct {
	Links storage.ReferralStore

	// RewardRate is the fraction of the fee credited to the referrer.
	RewardRate float64

	// Notifications is optional; applied credits are published to it.
	Notifications *notify.Dispatcher

	Logger *log.Logger
}

// NewLedger creates a new referral ledger.
func NewLedger(opts Options) *Ledger {
	if opts.RewardRate <= 0 {
		opts.RewardRate = domain.ReferralRewardRate
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[referral] ", log.LstdFlags)
	}

	return &Ledger{
		links:         opts.Links,
		rate:          opts.RewardRate,
		notifications: opts.Notifications,
		logger:        opts.Logger,
	}
}

// RecordSwapFee credits the user's referrer with their share of a swap
// fee. Idempotent per swap signature: re-recording the same swap is a
// no-op. Users without a referrer are a no-op too.
func (l *Ledger) RecordSwapFee(ctx context.Context, userID int64, swapSignature string, feeLamports uint64) error {
	if swapSignature == "" {
		return storage.ErrInvalidInput
	}
	if feeLamports == 0 {
		return nil
	}

	link, err := l.links.GetByReferee(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup referrer for user %d: %w", userID, err)
	}

	reward := uint64(float64(feeLamports) * l.rate)
	if reward == 0 {
		return nil
	}

	// CreditOnce moves the link total and the referrer's balance
	// together; a failure here applies nothing and the next swap-fee
	// recording for this signature retries the whole credit.
	credited, err := l.links.CreditOnce(ctx, userID, swapSignature, reward)
	if err != nil {
		return fmt.Errorf("credit referral for swap %s: %w", swapSignature, err)
	}
	if !credited {
		return nil
	}

	observability.RecordReferralCredit()
	if l.notifications != nil {
		l.notifications.Publish(notify.Event{
			UserID:  link.ReferrerID,
			Kind:    notify.KindReferralCredit,
			Message: fmt.Sprintf("referral reward: %d lamports", reward),
		})
	}
	l.logger.Printf("credited %d lamports to user %d for swap %s", reward, link.ReferrerID, swapSignature)
	return nil
}
