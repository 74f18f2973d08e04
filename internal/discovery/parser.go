package discovery

import (
	"regexp"
	"strings"
)

// RaydiumAMMV4 is the Raydium AMM v4 program ID.
const RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// WSOL is the Wrapped SOL mint address.
const WSOL = "So11111111111111111111111111111111111111112"

// Raydium AMM v4 initialize2 account indices.
// 4: AMM ID (pool), 8: coin mint, 9: PC mint.
const (
	initPoolIndex     = 4
	initCoinMintIndex = 8
	initPCMintIndex   = 9
	initMinAccounts   = 10
)

// InitParser detects Raydium pool initializations in transaction logs.
type InitParser struct {
	invokePattern *regexp.Regexp
}

// NewInitParser creates a parser for Raydium AMM v4 initialize2 logs.
func NewInitParser() *InitParser {
	return &InitParser{
		invokePattern: regexp.MustCompile(`Program ` + RaydiumAMMV4 + ` invoke`),
	}
}

// ParsePoolInit extracts a pool event from transaction logs and account
// keys. Returns nil when the transaction is not a pool initialization.
func (p *InitParser) ParsePoolInit(logs []string, accountKeys []string, txSig string, slot, timestamp int64) *PoolEvent {
	if !p.isPoolInit(logs) {
		return nil
	}
	if len(accountKeys) < initMinAccounts {
		return nil
	}

	coinMint := accountKeys[initCoinMintIndex]
	pcMint := accountKeys[initPCMintIndex]

	// The launched token is the non-WSOL side of the pair.
	mint, quote := coinMint, pcMint
	if mint == WSOL {
		mint, quote = pcMint, coinMint
	}
	if mint == WSOL || mint == "" {
		return nil
	}

	return &PoolEvent{
		Pool:        accountKeys[initPoolIndex],
		Mint:        mint,
		QuoteMint:   quote,
		TxSignature: txSig,
		Slot:        slot,
		Timestamp:   timestamp,
	}
}

// isPoolInit checks for an initialize2 instruction within a Raydium invocation.
func (p *InitParser) isPoolInit(logs []string) bool {
	invoked := false
	for _, line := range logs {
		if p.invokePattern.MatchString(line) {
			invoked = true
		}
		if invoked && strings.Contains(line, "initialize2") {
			return true
		}
	}
	return false
}
