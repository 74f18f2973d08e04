// Package executor signs and submits swaps, serializing execution per
// wallet so a user's trades never race each other.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/referral"
	"solana-trade-engine/internal/solana"
	"solana-trade-engine/internal/storage"
	"solana-trade-engine/internal/vault"
)

// Executor errors.
var (
	// ErrWalletBusy is returned when another execution holds the wallet
	// lock past the configured wait.
	ErrWalletBusy = errors.New("wallet busy")

	// ErrSwapRejected is returned when the chain rejects the transaction
	// (slippage exceeded, insufficient funds). Never retried: market
	// state has moved, the caller must re-quote.
	ErrSwapRejected = errors.New("swap rejected")
)

// Default configuration values.
const (
	DefaultQuoteTTL = 30 * time.Second
	DefaultLockWait = 5 * time.Second
)

// Options configures the Executor.
type Options struct {
	Vault      *vault.Vault
	Aggregator aggregator.Client
	RPC        solana.RPCClient
	Users      storage.UserStore
	Records    storage.SwapRecordStore

	// Fills is optional; executed fills are appended for analytics.
	Fills storage.FillStore

	// Referrals is optional; every executed swap's fee is offered to the
	// referral ledger, regardless of origin.
	Referrals *referral.Ledger

	// QuoteTTL is the maximum age of a quote at execution time.
	QuoteTTL time.Duration
	// LockWait bounds how long an execution waits for the wallet lock.
	LockWait time.Duration
	// Commitment used for transaction submission.
	Commitment solana.Commitment

	Logger *log.Logger
}

// Executor executes quoted swaps for custodied wallets.
type Executor struct {
	vault      *vault.Vault
	aggregator aggregator.Client
	rpc        solana.RPCClient
	users      storage.UserStore
	records    storage.SwapRecordStore
	fills      storage.FillStore
	referrals  *referral.Ledger
	locks      *lockRegistry
	quoteTTL   time.Duration
	lockWait   time.Duration
	commitment solana.Commitment
	logger     *log.Logger
	now        func() time.Time
}

// New creates a new Executor.
func New(opts Options) *Executor {
	if opts.QuoteTTL <= 0 {
		opts.QuoteTTL = DefaultQuoteTTL
	}
	if opts.LockWait <= 0 {
		opts.LockWait = DefaultLockWait
	}
	if opts.Commitment == "" {
		opts.Commitment = solana.CommitmentConfirmed
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[executor] ", log.LstdFlags)
	}

	return &Executor{
		vault:      opts.Vault,
		aggregator: opts.Aggregator,
		rpc:        opts.RPC,
		users:      opts.Users,
		records:    opts.Records,
		fills:      opts.Fills,
		referrals:  opts.Referrals,
		locks:      newLockRegistry(),
		quoteTTL:   opts.QuoteTTL,
		lockWait:   opts.LockWait,
		commitment: opts.Commitment,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Execute runs a user-initiated swap against a previously fetched quote.
func (e *Executor) Execute(ctx context.Context, userID int64, quote *domain.Quote) (string, error) {
	return e.ExecuteAs(ctx, userID, quote, domain.SwapOriginUser)
}

// ExecuteAs runs a swap on behalf of a user, tagging the record with its
// origin (foreground trade, sniper, or copy-trade mirror).
func (e *Executor) ExecuteAs(ctx context.Context, userID int64, quote *domain.Quote, origin domain.SwapOrigin) (string, error) {
	started := e.now()

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.HasWallet() {
		return "", fmt.Errorf("user %d has no wallet imported", userID)
	}

	release, err := e.locks.acquire(ctx, user.WalletAddress, e.lockWait)
	if err != nil {
		if errors.Is(err, ErrWalletBusy) {
			observability.RecordWalletBusy()
		}
		return "", err
	}
	defer release()
	observability.RecordWalletLockWait(e.now().Sub(started).Seconds())

	signature, err := e.executeLocked(ctx, user, quote, origin)
	if err != nil {
		observability.RecordSwapFailed(failReason(err))
		return "", err
	}

	observability.RecordSwapExecuted(string(origin), quote.FeeLamports, e.now().Sub(started).Seconds())
	e.logger.Printf("executed swap for user %d: %s -> %s, sig=%s",
		userID, quote.InputMint, quote.OutputMint, signature)

	return signature, nil
}

// executeLocked runs the swap with the wallet lock held.
func (e *Executor) executeLocked(ctx context.Context, user *domain.User, quote *domain.Quote, origin domain.SwapOrigin) (string, error) {
	// A stale quote is dead on arrival, reject before any network call.
	if age := quote.Age(e.now()); age > e.quoteTTL {
		return "", fmt.Errorf("quote is %s old: %w", age.Round(time.Millisecond), aggregator.ErrSwapBuild)
	}

	// Build transaction material before touching key material, keeping
	// the plaintext secret's lifetime as short as possible.
	unsignedTx, err := e.aggregator.BuildSwap(ctx, quote, user.WalletAddress)
	if err != nil {
		return "", err
	}

	signedTx, err := e.signFor(user, unsignedTx)
	if err != nil {
		return "", err
	}

	signature, err := e.rpc.SendTransaction(ctx, signedTx, e.commitment)
	if err != nil {
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %s", ErrSwapRejected, rpcErr.Message)
		}
		return "", fmt.Errorf("submit transaction: %w", err)
	}

	rec := &domain.SwapRecord{
		TxSignature:   signature,
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		InputMint:     quote.InputMint,
		OutputMint:    quote.OutputMint,
		InAmount:      quote.InAmount,
		OutAmount:     quote.OutAmount,
		FeeLamports:   quote.FeeLamports,
		Origin:        origin,
		ExecutedAt:    e.now(),
	}
	if err := e.records.Insert(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		// The swap is on chain; surface the bookkeeping failure but keep
		// the signature so the caller can reconcile.
		return signature, fmt.Errorf("record swap %s: %w", signature, err)
	}

	if e.fills != nil {
		if err := e.fills.InsertFill(ctx, rec); err != nil {
			e.logger.Printf("append fill %s: %v", signature, err)
		}
	}

	if e.referrals != nil {
		if err := e.referrals.RecordSwapFee(ctx, user.ID, signature, quote.FeeLamports); err != nil {
			e.logger.Printf("referral credit for swap %s: %v", signature, err)
		}
	}

	return signature, nil
}

// signFor decrypts the user's key, verifies it still derives the stored
// address, signs, and zeroizes all plaintext material before returning.
func (e *Executor) signFor(user *domain.User, unsignedTx []byte) ([]byte, error) {
	secret, err := e.vault.Decrypt(user.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("unlock wallet for user %d: %w", user.ID, err)
	}
	defer vault.Zeroize(secret)

	kp, err := vault.NewKeypairFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("unlock wallet for user %d: %w", user.ID, err)
	}
	defer kp.Zero()

	if kp.Address() != user.WalletAddress {
		return nil, fmt.Errorf("stored key for user %d does not derive wallet address: %w",
			user.ID, vault.ErrDecryption)
	}

	return signTransaction(unsignedTx, kp)
}

func failReason(err error) string {
	switch {
	case errors.Is(err, aggregator.ErrSwapBuild):
		return "build"
	case errors.Is(err, ErrSwapRejected):
		return "rejected"
	case errors.Is(err, vault.ErrDecryption):
		return "vault"
	default:
		return "other"
	}
}
