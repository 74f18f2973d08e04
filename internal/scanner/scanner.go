// Package scanner watches newly created pools and fires matching snipe
// jobs.
package scanner

import (
	"context"
	"log"
	"os"
	"time"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/discovery"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// SwapExecutor executes a quoted swap on behalf of a user.
type SwapExecutor interface {
	ExecuteAs(ctx context.Context, userID int64, quote *domain.Quote, origin domain.SwapOrigin) (string, error)
}

// Default configuration values.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 3
)

// Options configures the Scanner.
type Options struct {
	Source     discovery.PoolSource
	Jobs       storage.SnipeJobStore
	Aggregator aggregator.Client
	Executor   SwapExecutor

	// Interval between scan cycles. Ignored when Ticks is set.
	Interval time.Duration
	// Ticks overrides the internal ticker; each receive runs one cycle.
	Ticks <-chan time.Time
	// MaxAttempts before a failing job is marked failed.
	MaxAttempts int
	// QuoteMint is the input side of snipe buys, normally WSOL.
	QuoteMint string

	// Notifications is optional; snipe outcomes are published to it.
	Notifications *notify.Dispatcher

	Logger *log.Logger
}

// Scanner matches pool events against active snipe jobs.
type Scanner struct {
	source        discovery.PoolSource
	jobs          storage.SnipeJobStore
	aggregator    aggregator.Client
	executor      SwapExecutor
	interval      time.Duration
	ticks         <-chan time.Time
	maxAttempts   int
	quoteMint     string
	notifications *notify.Dispatcher
	logger        *log.Logger
	now           func() time.Time
}

// New creates a new Scanner.
func New(opts Options) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.QuoteMint == "" {
		opts.QuoteMint = discovery.WSOL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[scanner] ", log.LstdFlags)
	}

	return &Scanner{
		source:        opts.Source,
		jobs:          opts.Jobs,
		aggregator:    opts.Aggregator,
		executor:      opts.Executor,
		interval:      opts.Interval,
		ticks:         opts.Ticks,
		maxAttempts:   opts.MaxAttempts,
		quoteMint:     opts.QuoteMint,
		notifications: opts.Notifications,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Run scans until the context is cancelled. An in-flight cycle finishes
// before Run returns.
func (s *Scanner) Run(ctx context.Context) error {
	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.logger.Printf("scanning every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			s.cycle(ctx)
		}
	}
}

// cycle drains the pool source and matches every new pool against
// active jobs. Source errors are absorbed, never fatal.
func (s *Scanner) cycle(ctx context.Context) {
	events, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Printf("fetch pools: %v", err)
		return
	}

	for _, ev := range events {
		observability.RecordPoolScanned()

		jobs, err := s.jobs.GetActiveByTarget(ctx, ev.Mint)
		if err != nil {
			s.logger.Printf("load jobs for mint %s: %v", ev.Mint, err)
			continue
		}

		for _, job := range jobs {
			s.attempt(ctx, job, ev)
		}
	}

	observability.RecordScanCycle(s.now().Unix())
}

// attempt fires one job against one pool. The active->triggered flip is
// atomic, so a job matched by overlapping cycles executes once.
func (s *Scanner) attempt(ctx context.Context, job *domain.SnipeJob, ev *discovery.PoolEvent) {
	ok, err := s.jobs.UpdateStatusIf(ctx, job.ID, domain.SnipeJobActive, domain.SnipeJobTriggered)
	if err != nil {
		s.logger.Printf("trigger job %s: %v", job.ID, err)
		return
	}
	if !ok {
		return // another cycle got there first
	}

	observability.RecordSnipeMatched()

	sig, err := s.executeJob(ctx, job, ev)
	if err != nil {
		s.handleFailure(ctx, job, err)
		return
	}

	if err := s.jobs.SetTxSignature(ctx, job.ID, sig); err != nil {
		s.logger.Printf("store signature for job %s: %v", job.ID, err)
	}
	if _, err := s.jobs.UpdateStatusIf(ctx, job.ID, domain.SnipeJobTriggered, domain.SnipeJobExecuted); err != nil {
		s.logger.Printf("finish job %s: %v", job.ID, err)
	}

	observability.RecordSnipeOutcome("executed")
	s.logger.Printf("sniped %s for user %d: %s", ev.Mint, job.UserID, sig)
	s.publish(job.UserID, notify.KindSnipeTriggered, "snipe executed for "+ev.Mint)
}

func (s *Scanner) executeJob(ctx context.Context, job *domain.SnipeJob, ev *discovery.PoolEvent) (string, error) {
	quote, err := s.aggregator.GetQuote(ctx, s.quoteMint, ev.Mint, job.BuyAmountLamports, job.MaxSlippageBps)
	if err != nil {
		return "", err
	}

	return s.executor.ExecuteAs(ctx, job.UserID, quote, domain.SwapOriginSniper)
}

// handleFailure retries the job on a later pool sighting until its
// attempt budget is spent.
func (s *Scanner) handleFailure(ctx context.Context, job *domain.SnipeJob, cause error) {
	s.logger.Printf("job %s attempt failed: %v", job.ID, cause)

	attempts, err := s.jobs.IncrementAttempts(ctx, job.ID)
	if err != nil {
		s.logger.Printf("count attempt for job %s: %v", job.ID, err)
		return
	}

	if attempts >= s.maxAttempts {
		if _, err := s.jobs.UpdateStatusIf(ctx, job.ID, domain.SnipeJobTriggered, domain.SnipeJobFailed); err != nil {
			s.logger.Printf("fail job %s: %v", job.ID, err)
		}
		observability.RecordSnipeOutcome("failed")
		s.publish(job.UserID, notify.KindSwapFailed, "snipe gave up after retries")
		return
	}

	// Back to active; the next matching pool event retries it.
	if _, err := s.jobs.UpdateStatusIf(ctx, job.ID, domain.SnipeJobTriggered, domain.SnipeJobActive); err != nil {
		s.logger.Printf("rearm job %s: %v", job.ID, err)
	}
	observability.RecordSnipeOutcome("retry")
}

func (s *Scanner) publish(userID int64, kind, message string) {
	if s.notifications == nil {
		return
	}
	s.notifications.Publish(notify.Event{UserID: userID, Kind: kind, Message: message})
}
