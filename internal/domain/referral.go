package domain

import "time"

// ReferralRewardRate is the fixed share of a referee's trading fee credited
// to the referrer.
const ReferralRewardRate = 0.25

// ReferralLink binds a referee to the single referrer who invited them.
// Created once at first contact; only EarnedLamports changes afterwards,
// by fee-accrual increments.
type ReferralLink struct {
	ReferrerID     int64
	RefereeID      int64
	EarnedLamports uint64
	CreatedAt      time.Time
}
