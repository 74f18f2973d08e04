// Package idhash computes deterministic identifiers so that retried
// operations reuse the same ID instead of minting duplicates.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeJobID computes a deterministic snipe job ID using SHA256.
// Formula: SHA256(user_id|target_mint|buy_amount|created_unix)
// Returns hex-encoded hash (64 characters).
func ComputeJobID(userID int64, targetMint string, buyAmountLamports uint64, createdUnix int64) string {
	data := fmt.Sprintf("%d|%s|%d|%d",
		userID,
		targetMint,
		buyAmountLamports,
		createdUnix,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSubscriptionID computes a deterministic copy-trade subscription
// ID using SHA256.
// Formula: SHA256(user_id|tracked_address|created_unix)
// Returns hex-encoded hash (64 characters).
func ComputeSubscriptionID(userID int64, trackedAddress string, createdUnix int64) string {
	data := fmt.Sprintf("%d|%s|%d",
		userID,
		trackedAddress,
		createdUnix,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ReferralCodeLen is the length of generated referral codes.
const ReferralCodeLen = 8

// ComputeReferralCode derives a user's referral code from their ID.
// Formula: base58(SHA256("referral|" + user_id)) truncated to
// ReferralCodeLen characters. Deterministic so re-registration never
// rotates a user's code.
func ComputeReferralCode(userID int64) string {
	data := fmt.Sprintf("referral|%d", userID)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])[:ReferralCodeLen]
}
