package domain

import "time"

// MaxCopySubscriptions is the hard cap of live copy-trade subscriptions
// per user, enforced at creation time.
const MaxCopySubscriptions = 10

// CopyTradeSubscription mirrors a tracked address's swaps for one user.
type CopyTradeSubscription struct {
	ID             string
	UserID         int64
	TrackedAddress string
	Active         bool
	CreatedAt      time.Time
}
