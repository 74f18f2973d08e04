// Package mirror replays swaps made by tracked wallets into subscriber
// wallets, sized proportionally to each subscriber's balance.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/discovery"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/idhash"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/solana"
	"solana-trade-engine/internal/storage"
	"solana-trade-engine/internal/vault"
)

// ErrSubscriptionLimit is returned when a user already holds the maximum
// number of live subscriptions.
var ErrSubscriptionLimit = errors.New("subscription limit reached")

// SwapExecutor executes a quoted swap on behalf of a user.
type SwapExecutor interface {
	ExecuteAs(ctx context.Context, userID int64, quote *domain.Quote, origin domain.SwapOrigin) (string, error)
}

// Default configuration values.
const (
	DefaultInterval       = 10 * time.Second
	DefaultSlippageBps    = 100
	DefaultSignatureLimit = 50
	// DefaultMinReplayLamports filters out dust replays.
	DefaultMinReplayLamports = 10_000
)

// Options configures the mirror Service.
type Options struct {
	Subscriptions storage.SubscriptionStore
	Cursors       storage.MirrorCursorStore
	Users         storage.UserStore
	RPC           solana.RPCClient
	Aggregator    aggregator.Client
	Executor      SwapExecutor

	// Interval between polling cycles. Ignored when Ticks is set.
	Interval time.Duration
	// Ticks overrides the internal ticker; each receive runs one cycle.
	Ticks <-chan time.Time
	// SlippageBps applied to replayed swaps.
	SlippageBps int
	// MinReplayLamports is the smallest replay worth executing.
	MinReplayLamports uint64
	// MaxSubscriptions caps live subscriptions per user.
	MaxSubscriptions int
	// QuoteMint is the input side of replayed buys, normally WSOL.
	QuoteMint string

	// Notifications is optional; replay outcomes are published to it.
	Notifications *notify.Dispatcher

	Logger *log.Logger
}

// Service manages copy-trade subscriptions and drives the replay loop.
type Service struct {
	subs          storage.SubscriptionStore
	cursors       storage.MirrorCursorStore
	users         storage.UserStore
	rpc           solana.RPCClient
	aggregator    aggregator.Client
	executor      SwapExecutor
	interval      time.Duration
	ticks         <-chan time.Time
	slippageBps   int
	minReplay     uint64
	maxSubs       int
	quoteMint     string
	notifications *notify.Dispatcher
	logger        *log.Logger
	now           func() time.Time
}

// NewService creates a new mirror service.
func NewService(opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = DefaultSlippageBps
	}
	if opts.MinReplayLamports == 0 {
		opts.MinReplayLamports = DefaultMinReplayLamports
	}
	if opts.MaxSubscriptions <= 0 {
		opts.MaxSubscriptions = domain.MaxCopySubscriptions
	}
	if opts.QuoteMint == "" {
		opts.QuoteMint = discovery.WSOL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[mirror] ", log.LstdFlags)
	}

	return &Service{
		subs:          opts.Subscriptions,
		cursors:       opts.Cursors,
		users:         opts.Users,
		rpc:           opts.RPC,
		aggregator:    opts.Aggregator,
		executor:      opts.Executor,
		interval:      opts.Interval,
		ticks:         opts.Ticks,
		slippageBps:   opts.SlippageBps,
		minReplay:     opts.MinReplayLamports,
		maxSubs:       opts.MaxSubscriptions,
		quoteMint:     opts.QuoteMint,
		notifications: opts.Notifications,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Subscribe starts mirroring a tracked wallet for a user. The live
// subscription cap is enforced at creation.
func (s *Service) Subscribe(ctx context.Context, userID int64, trackedAddress string) (*domain.CopyTradeSubscription, error) {
	if err := vault.ValidateAddress(trackedAddress); err != nil {
		return nil, fmt.Errorf("tracked address: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user.WalletAddress == trackedAddress {
		return nil, fmt.Errorf("%w: cannot mirror own wallet", storage.ErrInvalidInput)
	}

	count, err := s.subs.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions for user %d: %w", userID, err)
	}
	if count >= s.maxSubs {
		return nil, fmt.Errorf("%w (%d live)", ErrSubscriptionLimit, count)
	}

	createdAt := s.now()
	sub := &domain.CopyTradeSubscription{
		ID:             idhash.ComputeSubscriptionID(userID, trackedAddress, createdAt.Unix()),
		UserID:         userID,
		TrackedAddress: trackedAddress,
		Active:         true,
		CreatedAt:      createdAt,
	}

	if err := s.subs.Insert(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.logger.Printf("user %d now mirrors %s", userID, trackedAddress)
	return sub, nil
}

// Unsubscribe stops a subscription.
func (s *Service) Unsubscribe(ctx context.Context, subscriptionID string) error {
	return s.subs.Deactivate(ctx, subscriptionID)
}

// Run polls tracked wallets until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.logger.Printf("polling tracked wallets every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			s.cycle(ctx)
		}
	}
}

// cycle polls every tracked address once. Errors are absorbed per
// address, never fatal to the loop.
func (s *Service) cycle(ctx context.Context) {
	subs, err := s.subs.GetActive(ctx)
	if err != nil {
		s.logger.Printf("load subscriptions: %v", err)
		return
	}

	byTracked := make(map[string][]*domain.CopyTradeSubscription)
	for _, sub := range subs {
		byTracked[sub.TrackedAddress] = append(byTracked[sub.TrackedAddress], sub)
	}

	for tracked, group := range byTracked {
		if err := s.pollTracked(ctx, tracked, group); err != nil {
			s.logger.Printf("poll %s: %v", tracked, err)
		}
	}
}

// pollTracked fetches new transactions for one tracked wallet and
// replays any swaps found.
func (s *Service) pollTracked(ctx context.Context, tracked string, group []*domain.CopyTradeSubscription) error {
	cursor, err := s.cursors.GetCursor(ctx, tracked)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load cursor: %w", err)
	}

	sigs, err := s.rpc.GetSignaturesForAddress(ctx, tracked, &solana.SignaturesOpts{
		Until: cursor,
		Limit: DefaultSignatureLimit,
	})
	if err != nil {
		return fmt.Errorf("list signatures: %w", err)
	}
	if len(sigs) == 0 {
		return nil
	}

	newest := sigs[0].Signature

	// First contact: anchor the cursor at the wallet's newest activity
	// instead of replaying history.
	if cursor == "" {
		return s.cursors.SetCursor(ctx, tracked, newest)
	}

	// Oldest first, so replays follow the tracked wallet's order.
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Err != nil {
			continue
		}

		swap, err := s.detectSwap(ctx, tracked, sigs[i].Signature)
		if err != nil {
			s.logger.Printf("inspect %s: %v", sigs[i].Signature, err)
			continue
		}
		if swap == nil {
			continue
		}

		observability.RecordMirrorDetected()
		for _, sub := range group {
			s.replay(ctx, sub, swap)
		}
	}

	return s.cursors.SetCursor(ctx, tracked, newest)
}

// trackedSwap is a buy observed on a tracked wallet.
type trackedSwap struct {
	Mint          string
	SpendLamports uint64
	PreBalance    uint64
}

// detectSwap reconstructs a buy from a transaction's balance deltas:
// the tracked wallet spent lamports and gained an SPL token. Returns
// nil when the transaction is not a buy.
func (s *Service) detectSwap(ctx context.Context, tracked, signature string) (*trackedSwap, error) {
	tx, err := s.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil || tx.Message == nil || tx.Meta.Err != nil {
		return nil, nil
	}

	idx := -1
	for i, key := range tx.Message.AccountKeys {
		if key == tracked {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return nil, nil
	}

	pre := tx.Meta.PreBalances[idx]
	post := tx.Meta.PostBalances[idx]
	if post >= pre {
		return nil, nil // not spending, not a buy
	}
	spend := pre - post

	// Token gained by the tracked wallet.
	preTokens := make(map[string]uint64)
	for _, tb := range tx.Meta.PreTokenBalances {
		if tb.Owner == tracked {
			preTokens[tb.Mint] = tb.Amount
		}
	}
	for _, tb := range tx.Meta.PostTokenBalances {
		if tb.Owner != tracked {
			continue
		}
		if tb.Amount > preTokens[tb.Mint] {
			return &trackedSwap{
				Mint:          tb.Mint,
				SpendLamports: spend,
				PreBalance:    pre,
			}, nil
		}
	}

	return nil, nil
}

// replay executes the detected buy for one subscriber, spending the
// same fraction of the subscriber's balance as the tracked wallet
// spent of its own.
func (s *Service) replay(ctx context.Context, sub *domain.CopyTradeSubscription, swap *trackedSwap) {
	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil || !user.HasWallet() {
		return
	}

	balance, err := s.rpc.GetBalance(ctx, user.WalletAddress)
	if err != nil {
		s.logger.Printf("balance for user %d: %v", sub.UserID, err)
		return
	}

	if swap.PreBalance == 0 {
		return
	}
	ratio := float64(swap.SpendLamports) / float64(swap.PreBalance)
	if ratio > 1 {
		ratio = 1
	}
	amount := uint64(float64(balance) * ratio)
	if amount < s.minReplay {
		return
	}

	quote, err := s.aggregator.GetQuote(ctx, s.quoteMint, swap.Mint, amount, s.slippageBps)
	if err != nil {
		s.logger.Printf("quote replay for user %d: %v", sub.UserID, err)
		return
	}

	sig, err := s.executor.ExecuteAs(ctx, sub.UserID, quote, domain.SwapOriginMirror)
	if err != nil {
		s.logger.Printf("replay for user %d: %v", sub.UserID, err)
		return
	}

	observability.RecordMirrorReplayed()
	s.logger.Printf("replayed %s buy for user %d: %s", swap.Mint, sub.UserID, sig)
	if s.notifications != nil {
		s.notifications.Publish(notify.Event{
			UserID:  sub.UserID,
			Kind:    notify.KindMirrorReplayed,
			Message: "copied buy of " + swap.Mint,
		})
	}
}
