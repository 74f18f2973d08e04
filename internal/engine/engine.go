// Package engine is the user-facing surface of the trading engine. It
// composes the vault, aggregator and executor into the operations a
// front-end calls.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/idhash"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/solana"
	"solana-trade-engine/internal/storage"
	"solana-trade-engine/internal/vault"
)

// Engine errors.
var (
	// ErrNoWallet is returned when an operation needs a wallet the user
	// has not imported yet.
	ErrNoWallet = errors.New("no wallet imported")

	// ErrInvalidTransition is returned when a snipe job is not in a
	// status that admits the requested change.
	ErrInvalidTransition = errors.New("job status does not allow this transition")
)

// SwapExecutor executes a quoted swap for a user's custodied wallet.
type SwapExecutor interface {
	Execute(ctx context.Context, userID int64, quote *domain.Quote) (string, error)
}

// Options configures the Engine.
type Options struct {
	Users      storage.UserStore
	Jobs       storage.SnipeJobStore
	Links      storage.ReferralStore
	Vault      *vault.Vault
	Aggregator aggregator.Client
	RPC        solana.RPCClient
	Executor   SwapExecutor

	// Notifications is optional; trade outcomes are published to it.
	Notifications *notify.Dispatcher

	Logger *log.Logger
}

// Engine exposes the user-facing operations.
type Engine struct {
	users         storage.UserStore
	jobs          storage.SnipeJobStore
	links         storage.ReferralStore
	vault         *vault.Vault
	aggregator    aggregator.Client
	rpc           solana.RPCClient
	executor      SwapExecutor
	notifications *notify.Dispatcher
	logger        *log.Logger
	now           func() time.Time
}

// New creates a new Engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}

	return &Engine{
		users:         opts.Users,
		jobs:          opts.Jobs,
		links:         opts.Links,
		vault:         opts.Vault,
		aggregator:    opts.Aggregator,
		rpc:           opts.RPC,
		executor:      opts.Executor,
		notifications: opts.Notifications,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// RegisterUser creates the user if absent. The user's own referral code
// is derived from their id, so repeated registration never rotates it.
// A referral code passed on first contact links the user to its owner;
// later contacts cannot change the link.
func (e *Engine) RegisterUser(ctx context.Context, userID int64, referralCode string) (*domain.User, error) {
	user := &domain.User{
		ID:           userID,
		ReferralCode: idhash.ComputeReferralCode(userID),
		CreatedAt:    e.now(),
	}

	created, err := e.users.CreateIfNotExists(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("register user %d: %w", userID, err)
	}
	if !created {
		return e.users.GetByID(ctx, userID)
	}

	if referralCode != "" {
		e.linkReferrer(ctx, userID, referralCode)
	}

	e.logger.Printf("registered user %d", userID)
	return user, nil
}

// linkReferrer resolves a referral code and records the relationship.
// A bad or self-referencing code is ignored, registration already
// succeeded.
func (e *Engine) linkReferrer(ctx context.Context, userID int64, code string) {
	referrer, err := e.users.GetByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Printf("resolve referral code for user %d: %v", userID, err)
		}
		return
	}
	if referrer.ID == userID {
		return
	}

	err = e.links.CreateLink(ctx, &domain.ReferralLink{
		ReferrerID: referrer.ID,
		RefereeID:  userID,
		CreatedAt:  e.now(),
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		e.logger.Printf("link user %d to referrer %d: %v", userID, referrer.ID, err)
		return
	}
	e.logger.Printf("user %d referred by user %d", userID, referrer.ID)
}

// ImportWallet parses user key input, seals it and stores it against the
// user. The raw input is never logged or echoed back; error text stays
// generic.
func (e *Engine) ImportWallet(ctx context.Context, userID int64, keyInput string) (string, error) {
	kp, err := vault.ParseSecret(keyInput)
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	secret := kp.SecretBytes()
	defer vault.Zeroize(secret)

	encrypted, err := e.vault.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("seal wallet key: %w", err)
	}

	address := kp.Address()
	if err := e.users.UpdateWallet(ctx, userID, address, encrypted); err != nil {
		return "", fmt.Errorf("store wallet for user %d: %w", userID, err)
	}

	e.logger.Printf("user %d imported wallet %s", userID, address)
	return address, nil
}

// WalletInfo returns the user's wallet address and current lamport
// balance. Balance reads go straight to the chain; a stale read is
// acceptable.
func (e *Engine) WalletInfo(ctx context.Context, userID int64) (string, uint64, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	if !user.HasWallet() {
		return "", 0, ErrNoWallet
	}

	balance, err := e.rpc.GetBalance(ctx, user.WalletAddress)
	if err != nil {
		return "", 0, fmt.Errorf("balance of %s: %w", user.WalletAddress, err)
	}
	return user.WalletAddress, balance, nil
}

// Trade quotes and executes a swap. The executor settles the referral
// share of the trade fee; a notification is fired either way.
func (e *Engine) Trade(ctx context.Context, userID int64, inputMint, outputMint string, amount uint64, slippageBps int) (string, error) {
	if amount == 0 {
		return "", fmt.Errorf("%w: zero amount", storage.ErrInvalidInput)
	}

	quote, err := e.aggregator.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return "", err
	}

	signature, err := e.executor.Execute(ctx, userID, quote)
	if err != nil {
		e.publish(userID, notify.KindSwapFailed, "swap failed: "+failText(err))
		return "", err
	}

	e.publish(userID, notify.KindSwapExecuted, "swapped "+inputMint+" for "+outputMint)
	return signature, nil
}

// CreateSnipeJob registers a pending snipe order. Activation is a
// separate step so the front-end can show a confirmation first.
func (e *Engine) CreateSnipeJob(ctx context.Context, userID int64, targetMint string, buyAmountLamports uint64, maxSlippageBps int) (*domain.SnipeJob, error) {
	if buyAmountLamports == 0 {
		return nil, fmt.Errorf("%w: zero buy amount", storage.ErrInvalidInput)
	}
	if targetMint != domain.SnipeTargetAny {
		if err := vault.ValidateAddress(targetMint); err != nil {
			return nil, fmt.Errorf("target mint: %w", err)
		}
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() {
		return nil, ErrNoWallet
	}

	createdAt := e.now()
	job := &domain.SnipeJob{
		ID:                idhash.ComputeJobID(userID, targetMint, buyAmountLamports, createdAt.Unix()),
		UserID:            userID,
		TargetMint:        targetMint,
		BuyAmountLamports: buyAmountLamports,
		MaxSlippageBps:    maxSlippageBps,
		Status:            domain.SnipeJobPending,
		CreatedAt:         createdAt,
	}

	if err := e.jobs.Insert(ctx, job); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Deterministic id: the same request retried maps to the
			// already created job.
			return e.jobs.GetByID(ctx, job.ID)
		}
		return nil, fmt.Errorf("create snipe job: %w", err)
	}

	e.logger.Printf("user %d created snipe job %s for %s", userID, job.ID, targetMint)
	return job, nil
}

// ActivateSnipeJob arms a pending job for the scanner.
func (e *Engine) ActivateSnipeJob(ctx context.Context, userID int64, jobID string) error {
	if _, err := e.ownedJob(ctx, userID, jobID); err != nil {
		return err
	}

	ok, err := e.jobs.UpdateStatusIf(ctx, jobID, domain.SnipeJobPending, domain.SnipeJobActive)
	if err != nil {
		return fmt.Errorf("activate job %s: %w", jobID, err)
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

// CancelSnipeJob cancels a job that has not reached a terminal status.
// A job the scanner finished concurrently stays finished.
func (e *Engine) CancelSnipeJob(ctx context.Context, userID int64, jobID string) error {
	job, err := e.ownedJob(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	ok, err := e.jobs.UpdateStatusIf(ctx, jobID, job.Status, domain.SnipeJobCancelled)
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	if !ok {
		return ErrInvalidTransition
	}

	e.logger.Printf("user %d cancelled snipe job %s", userID, jobID)
	return nil
}

// ListSnipeJobs returns the user's jobs, newest first.
func (e *Engine) ListSnipeJobs(ctx context.Context, userID int64) ([]*domain.SnipeJob, error) {
	return e.jobs.GetByUser(ctx, userID)
}

// ownedJob loads a job and hides other users' jobs behind ErrNotFound.
func (e *Engine) ownedJob(ctx context.Context, userID int64, jobID string) (*domain.SnipeJob, error) {
	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return job, nil
}

// ReferralSummary returns the user's shareable code and cumulative
// referral earnings in lamports.
func (e *Engine) ReferralSummary(ctx context.Context, userID int64) (string, uint64, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	return user.ReferralCode, user.ReferralEarned, nil
}

func (e *Engine) publish(userID int64, kind, message string) {
	if e.notifications == nil {
		return
	}
	e.notifications.Publish(notify.Event{UserID: userID, Kind: kind, Message: message})
}

// failText maps execution errors to user-safe text. Internal detail
// (addresses, store errors) stays in the logs.
func failText(err error) string {
	switch {
	case errors.Is(err, aggregator.ErrQuoteUnavailable):
		return "no route for this pair"
	case errors.Is(err, aggregator.ErrSwapBuild):
		return "quote expired, fetch a new one"
	default:
		return "execution error"
	}
}
