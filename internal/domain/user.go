package domain

import "time"

// User is an end user of the trading engine, keyed by an opaque numeric id
// assigned by the front-end.
type User struct {
	ID int64

	// WalletAddress is the base58 public address derived from the imported
	// secret. Empty until a wallet is imported.
	WalletAddress string

	// EncryptedKey is the AEAD-sealed secret key material. Only the vault
	// may decrypt it; it is never exposed in plaintext outside a signing call.
	EncryptedKey []byte

	// ReferralCode is generated once at registration and never changes.
	ReferralCode string

	// ReferralEarned is the cumulative referral reward balance in lamports.
	ReferralEarned uint64

	CreatedAt time.Time
}

// HasWallet reports whether the user has imported a wallet.
func (u *User) HasWallet() bool {
	return u.WalletAddress != "" && len(u.EncryptedKey) > 0
}
