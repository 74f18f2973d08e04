// Package stub provides an in-memory RPCClient for tests.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"solana-trade-engine/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Balances     map[string]uint64
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo

	// SendErr, when set, is returned by SendTransaction.
	SendErr error

	// Submitted collects every signed transaction passed to SendTransaction.
	Submitted [][]byte
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:     make(map[string]uint64),
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetBalance returns the configured balance for an address (zero if unset).
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[address], nil
}

// SendTransaction records the submission and returns a deterministic
// signature derived from the transaction bytes.
func (c *RPCClient) SendTransaction(_ context.Context, signedTx []byte, _ solana.Commitment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return "", c.SendErr
	}

	tx := make([]byte, len(signedTx))
	copy(tx, signedTx)
	c.Submitted = append(c.Submitted, tx)

	sum := sha256.Sum256(signedTx)
	return hex.EncodeToString(sum[:]), nil
}

// GetSignaturesForAddress returns configured signatures for an address.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sigs := c.Signatures[address]

	// Cursor semantics: return only entries newer than opts.Until.
	if opts != nil && opts.Until != "" {
		var newer []solana.SignatureInfo
		for _, s := range sigs {
			if s.Signature == opts.Until {
				break
			}
			newer = append(newer, s)
		}
		sigs = newer
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// GetTransaction returns the configured transaction, or nil if absent.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// SubmitCount returns the number of transactions submitted so far.
func (c *RPCClient) SubmitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Submitted)
}
