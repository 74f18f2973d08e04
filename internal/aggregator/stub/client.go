// Package stub provides an in-memory aggregator Client for tests.
package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/domain"
)

// Client implements aggregator.Client for testing. Quotes are keyed by
// "inputMint/outputMint".
type Client struct {
	mu sync.Mutex

	Quotes map[string]*domain.Quote

	// QuoteErr, when set, is returned by GetQuote.
	QuoteErr error
	// SwapErr, when set, is returned by BuildSwap.
	SwapErr error

	// SwapTx is returned by BuildSwap on success.
	SwapTx []byte

	QuoteCalls int
	SwapCalls  int
}

// NewClient creates a new stub aggregator client.
func NewClient() *Client {
	return &Client{
		Quotes: make(map[string]*domain.Quote),
		SwapTx: []byte("unsigned-tx"),
	}
}

// Compile-time interface check.
var _ aggregator.Client = (*Client)(nil)

// SetQuote registers a canned quote for a mint pair.
func (c *Client) SetQuote(q *domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Quotes[q.InputMint+"/"+q.OutputMint] = q
}

// GetQuote returns the canned quote for the pair, stamped with the
// requested amount and slippage.
func (c *Client) GetQuote(_ context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.QuoteCalls++

	if c.QuoteErr != nil {
		return nil, c.QuoteErr
	}

	base, ok := c.Quotes[inputMint+"/"+outputMint]
	if !ok {
		return nil, fmt.Errorf("%w: no route %s -> %s", aggregator.ErrQuoteUnavailable, inputMint, outputMint)
	}

	q := *base
	q.InAmount = amount
	q.SlippageBps = slippageBps
	q.FeeBps = domain.TradeFeeBps
	q.FeeLamports = amount * uint64(q.FeeBps) / 10_000
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now()
	}
	return &q, nil
}

// BuildSwap returns the configured transaction bytes.
func (c *Client) BuildSwap(_ context.Context, _ *domain.Quote, _ string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SwapCalls++

	if c.SwapErr != nil {
		return nil, c.SwapErr
	}

	tx := make([]byte, len(c.SwapTx))
	copy(tx, c.SwapTx)
	return tx, nil
}
