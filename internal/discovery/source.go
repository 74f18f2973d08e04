// Package discovery surfaces newly initialized liquidity pools for the
// scanner to match against snipe jobs.
package discovery

import "context"

// PoolEvent represents a newly initialized liquidity pool.
type PoolEvent struct {
	// Pool is the AMM pool account address.
	Pool string
	// Mint is the non-WSOL side of the pair, the token being launched.
	Mint string
	// QuoteMint is the other side of the pair, typically WSOL.
	QuoteMint string

	TxSignature string
	Slot        int64
	Timestamp   int64 // Unix timestamp (seconds)
}

// PoolSource produces newly discovered pools. Duplicates and gaps are
// tolerated: downstream matching is idempotent.
type PoolSource interface {
	// Fetch drains the events discovered since the previous call.
	// Returns an empty slice when nothing new arrived.
	Fetch(ctx context.Context) ([]*PoolEvent, error)

	// Close releases the source's resources.
	Close() error
}
