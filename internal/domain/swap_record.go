package domain

import "time"

// TradeFeeBps is the trading fee taken on every swap, in basis points.
const TradeFeeBps = 100

// SwapOrigin tells which component initiated a swap.
type SwapOrigin string

const (
	SwapOriginUser   SwapOrigin = "user"
	SwapOriginSniper SwapOrigin = "sniper"
	SwapOriginMirror SwapOrigin = "mirror"
)

// SwapRecord is the durable record of an executed on-chain swap. It is
// written before the wallet lock is released, so a crash after submission
// cannot lose the fact that funds moved.
type SwapRecord struct {
	// TxSignature is the on-chain transaction signature, unique per record.
	TxSignature string

	UserID        int64
	WalletAddress string

	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64

	FeeLamports uint64
	Origin      SwapOrigin

	ExecutedAt time.Time
}
