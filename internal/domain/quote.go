package domain

import (
	"encoding/json"
	"time"
)

// Quote is a priced, time-bounded offer from the aggregator to exchange
// InAmount of InputMint for OutAmount of OutputMint. Quotes are immutable;
// a stale quote must be re-fetched, never reused.
type Quote struct {
	InputMint  string
	OutputMint string

	// InAmount and OutAmount are in base units (lamports for SOL).
	InAmount  uint64
	OutAmount uint64

	// PriceImpactPct is the aggregator-reported price impact fraction
	// (0.005 == 0.5%).
	PriceImpactPct float64

	// SlippageBps and FeeBps are passed through to swap building unchanged.
	SlippageBps int
	FeeBps      int

	// FeeLamports is the trading fee charged on this quote's input amount.
	FeeLamports uint64

	// Raw is the aggregator's quote response verbatim. It identifies the
	// quote to its unique swap-building call and must not be modified.
	Raw json.RawMessage

	// FetchedAt marks when the quote was obtained, for staleness checks.
	FetchedAt time.Time
}

// Age returns how long ago the quote was fetched.
func (q *Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}
