package domain

import "time"

// SnipeJobStatus is the lifecycle state of a snipe job.
type SnipeJobStatus string

const (
	SnipeJobPending   SnipeJobStatus = "pending"
	SnipeJobActive    SnipeJobStatus = "active"
	SnipeJobTriggered SnipeJobStatus = "triggered"
	SnipeJobExecuted  SnipeJobStatus = "executed"
	SnipeJobFailed    SnipeJobStatus = "failed"
	SnipeJobCancelled SnipeJobStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SnipeJobStatus) IsTerminal() bool {
	switch s {
	case SnipeJobExecuted, SnipeJobFailed, SnipeJobCancelled:
		return true
	}
	return false
}

// SnipeTargetAny matches any newly created pool.
const SnipeTargetAny = "*"

// SnipeJob is a standing order to buy a token as soon as its pool appears.
// Mutated only by the pool scanner and by user-initiated cancel.
type SnipeJob struct {
	ID     string
	UserID int64

	// TargetMint is the token mint to snipe, or SnipeTargetAny.
	TargetMint string

	// BuyAmountLamports is how much of the input token to spend.
	BuyAmountLamports uint64

	// MaxSlippageBps caps tolerated adverse price movement.
	MaxSlippageBps int

	Status   SnipeJobStatus
	Attempts int

	// TxSignature is set once the job executed on-chain.
	TxSignature string

	CreatedAt time.Time
	UpdatedAt time.Time
}
